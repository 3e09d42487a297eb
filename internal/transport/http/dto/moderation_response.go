package dto

import "github.com/catboard/auth-service/internal/application/auth"

// ActionData acknowledges an admin or moderator action on a user.
type ActionData struct {
	Status string `json:"status"` // blocked, unblocked, role_changed, approved, rejected, requested
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

type UserPageData struct {
	Items    []UserView `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

func NewUserPageData(p auth.UserPage) UserPageData {
	items := make([]UserView, 0, len(p.Items))
	for _, u := range p.Items {
		items = append(items, NewUserView(u))
	}
	return UserPageData{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}
