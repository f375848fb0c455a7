package domain

// Collection is an ordered list of Identifiers addressable by title or id.
type Collection struct {
	Name  string
	Items []Identifier
}

// NewCollection returns a collection named name holding items in order.
func NewCollection(name string, items []Identifier) *Collection {
	return &Collection{Name: name, Items: items}
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.Items) }

// At returns the entry at index i.
func (c *Collection) At(i int) Identifier { return c.Items[i] }

// Lookup resolves key against the collection. Exact title matches win; when no
// title matches, ids are compared instead. More than one match is ambiguous.
func (c *Collection) Lookup(key string) (Identifier, error) {
	idx, err := c.index(key)
	if err != nil {
		return Identifier{}, err
	}
	return c.Items[idx], nil
}

// ByID resolves id against entry ids only. Titles are not consulted, so an
// entry titled like another entry's id cannot shadow it.
func (c *Collection) ByID(id string) (Identifier, error) {
	var matches []int
	for i, item := range c.Items {
		if item.ID == id {
			matches = append(matches, i)
		}
	}
	idx, err := c.pick(id, matches)
	if err != nil {
		return Identifier{}, err
	}
	return c.Items[idx], nil
}

// index returns the position of the single entry addressed by key.
func (c *Collection) index(key string) (int, error) {
	var matches []int
	for i, item := range c.Items {
		if item.Title == key {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		for i, item := range c.Items {
			if item.ID == key {
				matches = append(matches, i)
			}
		}
	}
	return c.pick(key, matches)
}

func (c *Collection) pick(key string, matches []int) (int, error) {
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return -1, &LookupError{Collection: c.Name, Key: key}
	default:
		candidates := make([]Identifier, len(matches))
		for i, m := range matches {
			candidates[i] = c.Items[m]
		}
		return -1, &LookupError{Collection: c.Name, Key: key, Candidates: candidates}
	}
}

// Titles returns entry titles in order.
func (c *Collection) Titles() []string {
	out := make([]string, len(c.Items))
	for i, item := range c.Items {
		out[i] = item.Title
	}
	return out
}
