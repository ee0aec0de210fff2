package reply

// Kind enumerates the nine built-in error conditions. Every kind behaves
// identically: either thrown as an *EngineError (when
// Config.ThrowExceptions is set) or rendered through the configured
// errorMessages map and returned as ordinary reply text.
type Kind string

const (
	KindDeepRecursion      Kind = "deepRecursion"
	KindRepliesNotSorted   Kind = "repliesNotSorted"
	KindNoDefaultTopic     Kind = "defaultTopicNotFound"
	KindReplyNotMatched    Kind = "replyNotMatched"
	KindReplyNotFound      Kind = "replyNotFound"
	KindObjectNotFound     Kind = "objectNotFound"
	KindCannotDivideByZero Kind = "cannotDivideByZero"
	KindCannotMathVariable Kind = "cannotMathVariable"
	KindCannotMathValue    Kind = "cannotMathValue"
)

// EngineError is raised in place of an error string when ThrowExceptions is
// enabled.
type EngineError struct {
	Kind Kind
	Msg  string
}

func (e *EngineError) Error() string {
	return string(e.Kind) + ": " + e.Msg
}

// DefaultErrorMessages is the built-in text returned for each Kind when
// ThrowExceptions is false and the caller's Config.ErrorMessages has no
// override for that key.
var DefaultErrorMessages = map[Kind]string{
	KindDeepRecursion:      "ERR: Deep Recursion Detected",
	KindRepliesNotSorted:   "ERR: Replies Not Sorted",
	KindNoDefaultTopic:     "ERR: No default topic 'random' was found",
	KindReplyNotMatched:    "ERR: No Reply Matched",
	KindReplyNotFound:      "ERR: No Reply Found",
	KindObjectNotFound:     "[ERR: Object Not Found]",
	KindCannotDivideByZero: "[ERR: Can't Divide By Zero]",
	KindCannotMathVariable: "[ERR: Math can't be done on non-numeric variable]",
	KindCannotMathValue:    "[ERR: Math can't be done on non-numeric value]",
}

// fail either returns an *EngineError or the stringified message for kind,
// depending on Config.ThrowExceptions.
func (e *Engine) fail(kind Kind, detail string) (string, error) {
	if e.cfg.ThrowExceptions {
		return "", &EngineError{Kind: kind, Msg: detail}
	}
	if msg, ok := e.cfg.ErrorMessages[kind]; ok {
		return msg, nil
	}
	return DefaultErrorMessages[kind], nil
}
