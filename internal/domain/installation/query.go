package installation

import "fmt"

// Query is the lookup key used by both FetchInstallation and
// DeleteInstallation. Nil pointer fields mean "no filter on this dimension",
// never "match empty string".
type Query struct {
	EnterpriseID        *string
	TeamID              *string
	UserID              *string
	IsEnterpriseInstall bool
}

// WithoutUser returns a copy of the query with the user filter removed.
// Stores use it during historical-mode fetches to recover the latest bot
// token independent of which user most recently authorized.
func (q Query) WithoutUser() Query {
	q.UserID = nil
	return q
}

// LogPart renders the query the way every backend logs it, e.g.
// "(enterprise_id: E123, team_id: undefined, user_id: U123)".
// Absent values render as "undefined" for compatibility with the historical
// log and error format.
func (q Query) LogPart() string {
	return fmt.Sprintf("(enterprise_id: %s, team_id: %s, user_id: %s)",
		orUndefined(q.EnterpriseID), orUndefined(q.TeamID), orUndefined(q.UserID))
}

func orUndefined(v *string) string {
	if v == nil {
		return "undefined"
	}
	return *v
}
