package goshape

// Validator is a checked schema. Its IsValid never panics, because Compile has
// already rejected unbound recursion markers and invalid nodes.
type Validator struct {
	schema *Schema
}

// Compile checks s and wraps it in a Validator.
func Compile(s *Schema) (*Validator, error) {
	if err := Check(s); err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// MustCompile is like Compile but panics on error. It suits package-level
// schema variables.
func MustCompile(s *Schema) *Validator {
	v, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsValid reports whether v conforms to the compiled schema.
func (vd *Validator) IsValid(v any) bool { return IsValid(v, vd.schema) }

// Schema returns the compiled schema.
func (vd *Validator) Schema() *Schema { return vd.schema }

func (vd *Validator) String() string { return vd.schema.String() }
