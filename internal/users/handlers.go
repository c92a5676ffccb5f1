package users

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sociallyhq/socially/backend/internal/httpx"
	"github.com/sociallyhq/socially/backend/internal/identity"
)

type Service struct {
	Store         Store
	WebhookSecret string
}

// Register mounts the authenticated user endpoints.
func Register(rg *gin.RouterGroup, store Store) {
	s := Service{Store: store}
	rg.GET("/users/me", s.getMe)
	rg.GET("/messages/users", s.listChatUsers)
}

// RegisterWebhook mounts the unauthenticated identity-provider webhook.
// Signature verification needs the raw body, so this stays off the
// authenticated group.
func RegisterWebhook(rg *gin.RouterGroup, store Store, secret string) {
	s := Service{Store: store, WebhookSecret: secret}
	rg.POST("/webhook/identity", s.handleWebhook)
}

func (s Service) getMe(c *gin.Context) {
	externalID := identity.MustIdentity(c)

	u, err := s.Store.ResolveExternal(c.Request.Context(), externalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Err(c, http.StatusNotFound, "user not found")
			return
		}
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	httpx.OK(c, u)
}

// listChatUsers returns everyone except the caller, newest first. This is
// the sidebar source for the chat UI.
func (s Service) listChatUsers(c *gin.Context) {
	externalID := identity.MustIdentity(c)

	me, err := s.Store.ResolveExternal(c.Request.Context(), externalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Err(c, http.StatusNotFound, "user not found")
			return
		}
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}

	list, err := s.Store.ListOthers(c.Request.Context(), me.ID)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if list == nil {
		list = []User{}
	}
	httpx.OK(c, list)
}

func (s Service) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "unreadable body")
		return
	}

	err = VerifySignature(
		s.WebhookSecret,
		c.GetHeader("webhook-id"),
		c.GetHeader("webhook-timestamp"),
		c.GetHeader("webhook-signature"),
		payload,
		time.Now(),
	)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		httpx.Err(c, http.StatusBadRequest, "malformed event")
		return
	}

	var data userEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil || data.ID == "" {
		httpx.Err(c, http.StatusBadRequest, "malformed event data")
		return
	}

	ctx := c.Request.Context()
	switch evt.Type {
	case "user.created", "user.updated":
		if _, err := s.Store.Upsert(ctx, data.toUser()); err != nil {
			log.Printf("[webhook] upsert %s failed: %v", data.ID, err)
			httpx.Err(c, http.StatusInternalServerError, "event processing failed")
			return
		}
	case "user.deleted":
		if err := s.Store.DeleteExternal(ctx, data.ID); err != nil {
			log.Printf("[webhook] delete %s failed: %v", data.ID, err)
			httpx.Err(c, http.StatusInternalServerError, "event processing failed")
			return
		}
	default:
		// Unhandled event types are acknowledged so the provider stops retrying.
	}

	httpx.OK(c, gin.H{"message": "webhook processed"})
}
