package domain

import (
	"encoding/json"
)

// DisplayFields are the task fields rendered on the task pages, in order.
// Other fields are fetched and searchable but not displayed.
var DisplayFields = []string{"Company", "Task", "Description", "Status", "Due date", "Priority"}

// CompanyField is the task field compared against an identity's company ID.
const CompanyField = "Company"

// TaskRecord is a single row fetched from the task table.
type TaskRecord struct {
	ID          string
	CreatedTime string
	Fields      map[string]any
}

// Field returns the named field value, or nil when absent.
func (t TaskRecord) Field(name string) any {
	if t.Fields == nil {
		return nil
	}
	return t.Fields[name]
}

// Flatten returns the record as a single map with id and createdTime
// alongside the fields. id and createdTime take precedence over fields of
// the same name.
func (t TaskRecord) Flatten() map[string]any {
	flat := make(map[string]any, len(t.Fields)+2)
	for k, v := range t.Fields {
		flat[k] = v
	}
	flat["id"] = t.ID
	flat["createdTime"] = t.CreatedTime
	return flat
}

// MarshalJSON encodes the record in its flattened form.
func (t TaskRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Flatten())
}

// UnmarshalJSON decodes a flattened record.
func (t *TaskRecord) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	rec := TaskRecord{Fields: make(map[string]any, len(flat))}
	for k, v := range flat {
		switch k {
		case "id":
			rec.ID, _ = v.(string)
		case "createdTime":
			rec.CreatedTime, _ = v.(string)
		default:
			rec.Fields[k] = v
		}
	}
	*t = rec
	return nil
}

// Workspace is the portal workspace the caller belongs to.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	BrandName string `json:"brandName,omitempty"`
	PortalURL string `json:"portalUrl,omitempty"`
}

// Client is a portal client user.
type Client struct {
	ID         string `json:"id"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	Email      string `json:"email,omitempty"`
	CompanyID  string `json:"companyId,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Company is a portal company.
type Company struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	IconImageURL string `json:"iconImageUrl,omitempty"`
}

// InternalUser is a workspace team member.
type InternalUser struct {
	ID         string `json:"id"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
}

// TokenPayload is the decoded content of a portal session token.
type TokenPayload struct {
	WorkspaceID    string `json:"workspaceId"`
	ClientID       string `json:"clientId,omitempty"`
	CompanyID      string `json:"companyId,omitempty"`
	InternalUserID string `json:"internalUserId,omitempty"`
}

// Identity is the caller's resolved session. Entities absent from the
// token payload are nil and omitted from JSON.
type Identity struct {
	Workspace    *Workspace    `json:"workspace,omitempty"`
	Client       *Client       `json:"client,omitempty"`
	Company      *Company      `json:"company,omitempty"`
	InternalUser *InternalUser `json:"internalUser,omitempty"`

	WorkspaceID    string `json:"-"`
	ClientID       string `json:"-"`
	CompanyID      string `json:"-"`
	InternalUserID string `json:"-"`
}

// Anonymous returns the identity of an unscoped (internal) caller.
func Anonymous() *Identity {
	return &Identity{}
}

// IsAnonymous reports whether no session was resolved.
func (i *Identity) IsAnonymous() bool {
	return i == nil || (i.WorkspaceID == "" && i.ClientID == "" && i.CompanyID == "" && i.InternalUserID == "")
}

// Scoped reports whether the identity restricts visible tasks to a company.
func (i *Identity) Scoped() bool {
	return i != nil && i.CompanyID != ""
}
