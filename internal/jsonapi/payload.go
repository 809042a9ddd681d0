package jsonapi

import "github.com/roach88/jsonapistore/internal/ir"

// Payload is the closed set of input shapes accepted by the normalizer.
// Only Resource, Many, ID, Document and Attributes implement it.
type Payload interface {
	isPayload()
}

// ID is a bare resource id with no type or body.
type ID string

// Many is a collection of payloads. Elements may mix variants.
type Many []Payload

// Attributes is a plain attribute map, meaningful only for partial updates.
type Attributes ir.Object

func (Resource) isPayload()   {}
func (ID) isPayload()         {}
func (Many) isPayload()       {}
func (Document) isPayload()   {}
func (Attributes) isPayload() {}

// Entry is one primary item of a flattened payload.
// Resource is nil when the item was a bare ID.
type Entry struct {
	ID       string
	Resource *Resource
}

// Flat is the canonical list form of a Payload.
type Flat struct {
	// Entries holds primary items in payload order.
	Entries []Entry

	// Included holds side-loaded resources in payload order.
	Included []Resource

	// Meta is the shallow merge of every document meta in the payload.
	Meta ir.Object

	// Many is true when the payload denotes a collection (Many, or a
	// document whose data is an array).
	Many bool
}

// Resources returns the resources to upsert: primary resources followed by
// included ones. Bare ids are skipped.
func (f Flat) Resources() []Resource {
	out := make([]Resource, 0, len(f.Entries)+len(f.Included))
	for _, e := range f.Entries {
		if e.Resource != nil {
			out = append(out, *e.Resource)
		}
	}
	return append(out, f.Included...)
}

// IDs returns the primary ids in order.
func (f Flat) IDs() []string {
	ids := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		ids[i] = e.ID
	}
	return ids
}

// PrimaryType returns the type of the first primary resource, if any.
func (f Flat) PrimaryType() (string, bool) {
	for _, e := range f.Entries {
		if e.Resource != nil && e.Resource.Type != "" {
			return e.Resource.Type, true
		}
	}
	return "", false
}

// Flatten resolves a Payload into its canonical list form.
//
// It is the only place that inspects the payload shape. Attributes and nil
// payloads are rejected with INVALID_PAYLOAD because they carry no
// resource identity. Flatten does not validate type and id; that is left to
// the ingest step, which knows each resource's batch position.
func Flatten(p Payload) (Flat, error) {
	var f Flat
	switch v := p.(type) {
	case Many:
		f.Many = true
	case Document:
		f.Many = v.Many
	}
	if err := flattenInto(&f, p); err != nil {
		return Flat{}, err
	}
	return f, nil
}

func flattenInto(f *Flat, p Payload) error {
	switch v := p.(type) {
	case nil:
		return NewInvalidPayloadError("", "payload is empty")
	case ID:
		if v == "" {
			return NewMissingIDError("id", -1)
		}
		f.Entries = append(f.Entries, Entry{ID: string(v)})
	case Resource:
		r := v
		f.Entries = append(f.Entries, Entry{ID: r.ID, Resource: &r})
	case Document:
		for i := range v.Data {
			r := v.Data[i]
			f.Entries = append(f.Entries, Entry{ID: r.ID, Resource: &r})
		}
		f.Included = append(f.Included, v.Included...)
		if v.Meta != nil {
			f.Meta = f.Meta.Merge(v.Meta)
		}
	case Many:
		for _, elem := range v {
			if err := flattenInto(f, elem); err != nil {
				return err
			}
		}
	case Attributes:
		return NewInvalidPayloadError("", "attribute map has no resource identity")
	default:
		return NewInvalidPayloadError("", "unsupported payload %T", p)
	}
	return nil
}
