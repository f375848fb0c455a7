package domain

import (
	"context"
	"encoding/json"
	"net/http"
)

// Requester performs one RPC-style call against the reporting API,
// e.g. Request(ctx, "Report", "GetStatus", body).
// Implemented by client.Client.
type Requester interface {
	Request(ctx context.Context, api, method string, body any) (json.RawMessage, error)
}

// Signer produces the authentication headers for a single request.
// Implemented by auth.WSSE.
type Signer interface {
	Sign(ctx context.Context) (http.Header, error)
}

// CatalogProvider lists the catalog entries of a reporting suite.
// Implemented by catalog.RemoteProvider.
type CatalogProvider interface {
	List(ctx context.Context, suite SuiteRef, kind CatalogKind) ([]Identifier, error)
}
