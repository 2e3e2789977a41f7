package dto

type ExpandInput struct {
	Data     any
	Template any
	Lenient  bool
}

type ExpandFileInput struct {
	DataPath     string
	TemplatePath string
	Lenient      bool
}

type ExpandOutput struct {
	Document any
}
