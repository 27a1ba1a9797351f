package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/scholarship-portal/internal/model"
)

const (
	pathNotifications = "/api/notifications"
	pathUnreadCount   = "/api/notifications/unread-count"
	pathReadAll       = "/api/notifications/read-all"
	pathBulkDelete    = "/api/notifications/bulk-delete"
	pathMe            = "/api/auth/me"
	pathLogout        = "/api/auth/logout"
	pathApplications  = "/api/applications/mine"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

type applicationsResponse struct {
	Applications []model.Application `json:"applications"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// ListNotifications returns the signed-in user's notifications in the
// order the portal lists them.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var resp notificationsResponse
	if err := c.do(ctx, http.MethodGet, pathNotifications, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return resp.Notifications, nil
}

// UnreadCount returns the portal's unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.do(ctx, http.MethodGet, pathUnreadCount, nil, &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return resp.Count, nil
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := pathNotifications + "/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPatch, pathReadAll, nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// Delete removes one notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := pathNotifications + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// DeleteMany removes several notifications in one request.
func (c *Client) DeleteMany(ctx context.Context, ids []string) error {
	if err := c.do(ctx, http.MethodPost, pathBulkDelete, bulkDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting %d notifications: %w", len(ids), err)
	}
	return nil
}

// CurrentUser returns the authenticated profile, or nil without an error
// when the token is missing or rejected.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	if c.bearer() == "" {
		return nil, nil
	}

	var user model.User
	err := c.do(ctx, http.MethodGet, pathMe, nil, &user)
	if IsAuthError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &user, nil
}

// ListApplications returns the signed-in user's applications.
func (c *Client) ListApplications(ctx context.Context) ([]model.Application, error) {
	var resp applicationsResponse
	if err := c.do(ctx, http.MethodGet, pathApplications, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return resp.Applications, nil
}

// Logout ends the portal session. An already-expired token is not an
// error.
func (c *Client) Logout(ctx context.Context) error {
	if c.bearer() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, pathLogout, nil, nil)
	if err != nil && !IsAuthError(err) {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}
