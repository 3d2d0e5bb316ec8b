package config

// IRFileExt is the extension of serialized IR units the front-end emits.
const IRFileExt = ".ir.json"

// ConfigFileName is the default project configuration file.
const ConfigFileName = "alchemist.yaml"

// Reserved sentinel atoms the exception builder throws for loop control
// flow; the loop-lowering layer catches them.
const (
	BreakSentinel    = "__break__"
	ContinueSentinel = "__continue__"
)

// ReceiverName is the binder instance methods receive their struct value
// under; the context's infrastructure heuristics resolve the source
// language's reserved receiver reference to it.
const ReceiverName = "this"

// TempPrefix prefixes compiler-chosen fresh temporaries so they can never
// collide with user locals (the front-end case-normalizes user names and
// never emits a leading underscore-t).
const TempPrefix = "_t"

// VerbatimMarker is the front-end name of the verbatim-code-injection
// escape hatch. Calls to it are intercepted before any other call
// interpretation.
const VerbatimMarker = "__elixir__"

// UnmatchedMessage is the raise message of the fail-fast fallback arm a
// reconstructed single-ctor dispatch gets when the source had no else.
const UnmatchedMessage = "unmatched value"
