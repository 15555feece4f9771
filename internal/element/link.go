package element

import "github.com/google/uuid"

// Link is the value of a linked property: the identity of the target element
// plus enough context to display it when the target is not loaded
type Link struct {
	ElementID    uuid.UUID `json:"element_id" yaml:"element_id"`
	Text         string    `json:"text,omitempty" yaml:"text,omitempty"`
	DocumentID   uuid.UUID `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	DocumentName string    `json:"document_name,omitempty" yaml:"document_name,omitempty"`
	ModuleID     uuid.UUID `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	ModuleName   string    `json:"module_name,omitempty" yaml:"module_name,omitempty"`
	DataEx       string    `json:"data_ex,omitempty" yaml:"data_ex,omitempty"`
}

// LinkedShape is a link drawn as a diagram edge
type LinkedShape struct {
	Link          `yaml:",inline"`
	Side          int32   `json:"side" yaml:"side"`
	X             float64 `json:"x" yaml:"x"`
	Y             float64 `json:"y" yaml:"y"`
	DesiredDegree float64 `json:"desired_degree" yaml:"desired_degree"`
}

// LinkTo builds a link to target
func LinkTo(target *Element) Link {
	link := Link{ElementID: target.ID(), Text: target.Name}
	if doc := target.Tree(); doc != nil {
		link.DocumentID = doc.ID
		link.DocumentName = doc.Name
	}
	return link
}

// LinkOf extracts the link carried by a linked property value
func LinkOf(v any) (Link, bool) {
	switch l := v.(type) {
	case Link:
		return l, true
	case *Link:
		if l == nil {
			return Link{}, false
		}
		return *l, true
	case LinkedShape:
		return l.Link, true
	case *LinkedShape:
		if l == nil {
			return Link{}, false
		}
		return l.Link, true
	case uuid.UUID:
		return Link{ElementID: l}, true
	}
	return Link{}, false
}
