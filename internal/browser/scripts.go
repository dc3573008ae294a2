package browser

// Scripts every Session implementation has to understand.
const (
	ScriptReadyState = "document.readyState"
	ScriptOuterHTML  = "document.documentElement.outerHTML"
)
