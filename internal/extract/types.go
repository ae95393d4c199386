package extract

// Kind distinguishes the two declaration shapes that receive comments.
type Kind int

const (
	Function Kind = iota
	Variable
)

func (k Kind) String() string {
	if k == Variable {
		return "variable"
	}
	return "function"
}

// Scope tags where a variable was declared.
type Scope int

const (
	TopLevel Scope = iota
	FunctionLocal
)

func (s Scope) String() string {
	if s == FunctionLocal {
		return "local"
	}
	return "top-level"
}

// TypeDesc is a resolved type name. The zero value is Unknown.
type TypeDesc struct {
	name string
}

// Unknown is the sentinel for a type that could not be resolved.
var Unknown = TypeDesc{}

// Named returns a resolved TypeDesc. An empty name yields Unknown.
func Named(name string) TypeDesc {
	return TypeDesc{name: name}
}

// IsUnknown reports whether the type could not be resolved.
func (t TypeDesc) IsUnknown() bool { return t.name == "" }

// Name returns the resolved name, or "" for Unknown.
func (t TypeDesc) Name() string { return t.name }

// String renders the type for display; Unknown renders as "any".
func (t TypeDesc) String() string {
	if t.name == "" {
		return "any"
	}
	return t.name
}

// Param is one declared parameter.
type Param struct {
	Name string
	Type TypeDesc
}

// Descriptor describes one declaration site that gets a comment.
// Line is 0-indexed.
type Descriptor struct {
	Kind    Kind
	Name    string
	Line    int
	Params  []Param
	Returns TypeDesc
	Scope   Scope
}

const anonymousName = "anonymous"
const unknownParamName = "unknown"
