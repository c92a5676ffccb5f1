package messages

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sociallyhq/socially/backend/internal/httpx"
	"github.com/sociallyhq/socially/backend/internal/identity"
	"github.com/sociallyhq/socially/backend/internal/media"
	"github.com/sociallyhq/socially/backend/internal/users"
	"github.com/sociallyhq/socially/backend/internal/utils"
)

const maxFilesPerKind = 5

type Service struct {
	Users    users.Store
	Store    Store
	Media    media.Store
	Notifier Notifier
}

type sendReq struct {
	Text        string  `json:"text"`
	Attachments []Media `json:"attachments" binding:"omitempty,dive"`
}

func Register(rg *gin.RouterGroup, us users.Store, st Store, ms media.Store, n Notifier) {
	s := Service{
		Users:    us,
		Store:    st,
		Media:    ms,
		Notifier: n,
	}
	rg.GET("/conversation/:peer", s.list)
	rg.POST("/conversation/:peer", s.send)
}

// resolveParties turns the caller's identity and the :peer path param into
// user records. Either one missing is a 404.
func (s Service) resolveParties(c *gin.Context) (me, peer users.User, ok bool) {
	ctx := c.Request.Context()

	me, err := s.Users.ResolveExternal(ctx, identity.MustIdentity(c))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httpx.Err(c, http.StatusNotFound, "user not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "database error")
		}
		return me, peer, false
	}

	peer, err = s.Users.ResolveExternal(ctx, c.Param("peer"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httpx.Err(c, http.StatusNotFound, "receiver not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "database error")
		}
		return me, peer, false
	}
	return me, peer, true
}

func (s Service) list(c *gin.Context) {
	me, peer, ok := s.resolveParties(c)
	if !ok {
		return
	}

	list, err := s.Store.ListConversation(c.Request.Context(), me, peer)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if list == nil {
		list = []Message{}
	}
	httpx.OK(c, list)
}

func (s Service) send(c *gin.Context) {
	me, peer, ok := s.resolveParties(c)
	if !ok {
		return
	}

	text, attachments, ok := s.readContent(c)
	if !ok {
		return
	}

	msg, err := s.Store.Append(c.Request.Context(), me, peer, text, attachments)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			httpx.Err(c, http.StatusBadRequest, "message needs text or media")
			return
		}
		httpx.Err(c, http.StatusInternalServerError, "insert failed")
		return
	}

	// The message is committed; pushing it is best-effort and cannot fail
	// the request.
	s.Notifier.Notify(msg)

	httpx.Created(c, msg)
}

// readContent accepts either a JSON body with pre-uploaded attachment URLs
// or a multipart form whose files go through the media store first.
func (s Service) readContent(c *gin.Context) (string, []Media, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return s.readMultipart(c)
	}

	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return "", nil, false
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return "", nil, false
	}
	return req.Text, req.Attachments, true
}

func (s Service) readMultipart(c *gin.Context) (string, []Media, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "malformed form")
		return "", nil, false
	}

	text := c.PostForm("text")
	var attachments []Media

	for _, part := range []struct {
		field, kind string
	}{
		{"images", KindImage},
		{"videos", KindVideo},
	} {
		files := form.File[part.field]
		if len(files) > maxFilesPerKind {
			httpx.Err(c, http.StatusBadRequest, "too many "+part.field)
			return "", nil, false
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				httpx.Err(c, http.StatusInternalServerError, "media upload failed")
				return "", nil, false
			}
			url, err := s.Media.Upload(c.Request.Context(), f, fh.Filename, part.kind)
			f.Close()
			if err != nil {
				httpx.Err(c, http.StatusInternalServerError, "media upload failed")
				return "", nil, false
			}
			attachments = append(attachments, Media{URL: url, Kind: part.kind})
		}
	}
	return text, attachments, true
}
