package common

const (
	// TemplateExt is appended to template names given without an extension.
	TemplateExt = ".pmd"

	DefaultConfigFile = "pmd.config.yaml"

	DefaultMaxIncludeDepth = 16
)

// BoolFormat is the text booleans render as.
type BoolFormat struct {
	True  string `yaml:"true"`
	False string `yaml:"false"`
}
