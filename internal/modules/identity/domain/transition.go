package domain

type Write int

const (
	WriteNone Write = iota
	WriteSave
	WriteClear
)

// Decision is the outcome of applying one provider event to a record.
type Decision struct {
	Next  Record
	Write Write
	// Reconciled is set when the cached identity was replaced by a different
	// provider user and had to be re-established.
	Reconciled bool
}

// Transition decides how a provider event changes current. tokenUsable is false
// when the cached token is known to be expired; such a token counts as absent.
// It never replaces a usable token of the same user.
func Transition(current Record, event ProviderEvent, tokenUsable bool) Decision {
	if event.User == nil {
		if current.Empty() {
			return Decision{Next: current}
		}
		return Decision{
			Next:  Record{Version: current.Version + 1, State: StateUnauthenticated},
			Write: WriteClear,
		}
	}

	hasToken := current.Token != "" && tokenUsable
	if current.User != nil && current.User.ID == event.User.ID && hasToken {
		if current.User.SameDisplay(*event.User) {
			return Decision{Next: current}
		}
		next := current.Clone()
		next.Version++
		user := *event.User
		next.User = &user
		return Decision{Next: next, Write: WriteSave}
	}

	user := *event.User
	next := Record{Version: current.Version + 1, User: &user, State: StateAuthenticatedCached}
	switch {
	case hasToken && current.TokenSource != TokenSourceProvider:
		next.Token = current.Token
		next.TokenSource = TokenSourceBackend
	case event.IDToken != "":
		next.Token = event.IDToken
		next.TokenSource = TokenSourceProvider
	default:
		if current.Empty() {
			return Decision{Next: current}
		}
		return Decision{
			Next:  Record{Version: current.Version + 1, State: StateUnauthenticated},
			Write: WriteClear,
		}
	}
	return Decision{Next: next, Write: WriteSave, Reconciled: true}
}
