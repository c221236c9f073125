package llm

import "strings"

// QualifyToolName builds the {tool}__{action} wire name the contract
// requires when exposing a registry tool action to the model.
func QualifyToolName(tool, action string) string {
	return tool + "__" + action
}

// SplitQualifiedToolName reverses QualifyToolName. ok is false if name has
// no "__" separator.
func SplitQualifiedToolName(name string) (tool, action string, ok bool) {
	idx := strings.Index(name, "__")
	if idx < 0 {
		return "", "", false
	}
	return name[:idx], name[idx+len("__"):], true
}
