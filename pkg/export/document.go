package export

// Field is a single labelled value in a rendered document.
type Field struct {
	Label string
	Value string
}

// Section groups related fields under a heading.
type Section struct {
	Title  string
	Fields []Field
}

// Document is the renderer-independent shape of an exported syllabus.
type Document struct {
	Title    string
	Subtitle string
	Meta     []Field
	Sections []Section
}
