package translator

import _ "embed"

//go:embed expdefs/builtin.yaml
var builtinExpDefsYAML []byte

// BuiltinExpDefs returns the bytes of the built-in experiment-definition
// YAML shipped with the binary.
func BuiltinExpDefs() []byte {
	return builtinExpDefsYAML
}
