package domain

type UserKind string

const (
	UserKindRequester UserKind = "requester"
	UserKindAgent     UserKind = "agent"
)

// User is a requester or agent record as returned by the lookup endpoints.
// Only the fields the wizard needs are decoded; Email and Kind are filled
// in by the lookup.
type User struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"-"`
	Kind      UserKind `json:"-"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type RequesterList struct {
	Requesters []User `json:"requesters"`
}

type AgentList struct {
	Agents []User `json:"agents"`
}
