package rest

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/present/rest/middleware"
	"github.com/edustake/edustake-core/internal/present/rest/presenter"
	"github.com/edustake/edustake-core/internal/service"
	"github.com/edustake/edustake-core/internal/usecase"
)

// Handler is the boundary the browser UI calls into. It contains no
// storage logic; everything is delegated to the usecases and services.
type Handler struct {
	session   *service.SessionService
	sync      *service.SyncService
	signal    *service.SignalService
	resources *usecase.ResourceUsecase
	chats     *usecase.SavedChatUsecase
	messages  *usecase.MessageUsecase
	history   *usecase.SearchHistoryUsecase
	profiles  *usecase.ProfileUsecase
}

func NewHandler(
	session *service.SessionService,
	sync *service.SyncService,
	signal *service.SignalService,
	resources *usecase.ResourceUsecase,
	chats *usecase.SavedChatUsecase,
	messages *usecase.MessageUsecase,
	history *usecase.SearchHistoryUsecase,
	profiles *usecase.ProfileUsecase,
) *Handler {
	return &Handler{
		session:   session,
		sync:      sync,
		signal:    signal,
		resources: resources,
		chats:     chats,
		messages:  messages,
		history:   history,
		profiles:  profiles,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/auth/register", h.handleRegister)
	e.POST("/api/v1/auth/login", h.handleLogin)
	e.POST("/api/v1/auth/logout", h.handleLogout)
	e.GET("/api/v1/session", h.handleSession)

	e.GET("/api/v1/resources", h.handleListResources)
	e.POST("/api/v1/resources", h.handleUploadResource)
	e.DELETE("/api/v1/resources/:id", h.handleRemoveResource)
	e.POST("/api/v1/resources/:id/like", h.handleLikeResource)
	e.POST("/api/v1/resources/:id/unlike", h.handleUnlikeResource)
	e.POST("/api/v1/resources/:id/view", h.handleViewResource)

	e.GET("/api/v1/saved-chats", h.handleListSavedChats)
	e.POST("/api/v1/saved-chats", h.handleSaveChat)
	e.DELETE("/api/v1/saved-chats/:id", h.handleRemoveSavedChat)

	e.GET("/api/v1/messages", h.handleListMessages)
	e.POST("/api/v1/messages", h.handleSendMessage)
	e.POST("/api/v1/channels/:id/sync", h.handleSyncChannel)

	e.GET("/api/v1/search-history", h.handleListHistory)
	e.POST("/api/v1/search-history", h.handleRecordSearch)

	e.GET("/api/v1/profiles/:uid", h.handleGetProfile)
	e.PUT("/api/v1/profiles/:uid", h.handleUpdateProfile)

	e.GET("/realtime", h.handleRealtime)
}

func fail(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return presenter.BadRequest(c, err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return presenter.NotFound(c, err.Error())
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return presenter.Unauthorized(c, err.Error())
	}
	return presenter.InternalError(c, err)
}

// --- auth ---

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.session.Register(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OKWithWarning(c, echo.Map{
		"user":  result.Identity,
		"token": result.Token,
	}, result.Warning)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.session.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OKWithWarning(c, echo.Map{
		"user":  result.Identity,
		"token": result.Token,
	}, result.Warning)
}

func (h *Handler) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()

	token := ""
	authHeader := c.Request().Header.Get("authorization")
	if len(authHeader) > 7 {
		token = authHeader[7:] // strip "Bearer "
	}

	if err := h.session.SignOut(ctx, token); err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleSession(c echo.Context) error {
	identity, signedIn := h.session.Identity()
	return presenter.OK(c, echo.Map{
		"state":    h.session.State().String(),
		"signedIn": signedIn,
		"user":     identity,
	})
}

// --- resources ---

func (h *Handler) handleListResources(c echo.Context) error {
	ctx := c.Request().Context()

	if communityID := c.QueryParam("communityId"); communityID != "" {
		return presenter.OK(c, h.resources.ByCommunity(ctx, communityID))
	}
	if subjectID := c.QueryParam("subjectId"); subjectID != "" {
		return presenter.OK(c, h.resources.BySubject(ctx, subjectID))
	}
	return presenter.OK(c, h.resources.List(ctx))
}

type uploadResourceRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Data        string `json:"data"` // base64
	CommunityID string `json:"communityId"`
	SubjectID   string `json:"subjectId"`
}

func (h *Handler) handleUploadResource(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to upload resources")
	}

	var req uploadResourceRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return presenter.BadRequestMessage(c, "data must be base64-encoded")
	}

	uploaderName := ""
	if identity, ok := h.session.Identity(); ok {
		uploaderName = identity.Username
	}

	res, err := h.resources.Upload(ctx, usecase.UploadResourceInput{
		Name:         req.Name,
		Type:         req.Type,
		Data:         data,
		CommunityID:  req.CommunityID,
		SubjectID:    req.SubjectID,
		UploaderID:   uid,
		UploaderName: uploaderName,
	})
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, res)
}

func (h *Handler) handleRemoveResource(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to delete resources")
	}

	if err := h.resources.Remove(ctx, c.Param("id"), uid); err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleLikeResource(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.resources.Like(ctx, c.Param("id"), middleware.RequesterID(ctx))
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, res)
}

func (h *Handler) handleUnlikeResource(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.resources.Unlike(ctx, c.Param("id"), middleware.RequesterID(ctx))
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, res)
}

func (h *Handler) handleViewResource(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.resources.IncrementViews(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, res)
}

// --- saved chats ---

func (h *Handler) handleListSavedChats(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to list saved chats")
	}
	return presenter.OK(c, h.chats.List(ctx, uid))
}

func (h *Handler) handleSaveChat(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to save chats")
	}

	var msg edustake.Message
	if err := c.Bind(&msg); err != nil {
		return presenter.BadRequest(c, err)
	}

	chat, err := h.chats.Save(ctx, usecase.SaveChatInput{UserID: uid, Message: msg})
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, chat)
}

func (h *Handler) handleRemoveSavedChat(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to remove saved chats")
	}

	if err := h.chats.Remove(ctx, c.Param("id"), uid); err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// --- messages ---

func (h *Handler) handleListMessages(c echo.Context) error {
	ctx := c.Request().Context()

	channelID := c.QueryParam("channelId")
	if channelID == "" {
		return presenter.BadRequestMessage(c, "channelId is required")
	}
	return presenter.OK(c, h.messages.ByChannel(ctx, channelID))
}

type sendMessageRequest struct {
	Text        string `json:"text"`
	ChannelID   string `json:"channelId"`
	Attachments []struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Data string `json:"data"` // base64
	} `json:"attachments"`
}

func (h *Handler) handleSendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to send messages")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	input := usecase.SendMessageInput{
		Text:      req.Text,
		ChannelID: req.ChannelID,
	}
	if identity, ok := h.session.Identity(); ok {
		input.Username = identity.Username
		input.PhotoURL = identity.PhotoURL
	}
	for _, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			return presenter.BadRequestMessage(c, "attachment data must be base64-encoded")
		}
		input.Attachments = append(input.Attachments, usecase.AttachmentInput{
			Name: att.Name,
			Type: att.Type,
			Data: data,
		})
	}

	msg, err := h.messages.Send(ctx, input)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, msg)
}

func (h *Handler) handleSyncChannel(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.sync.SyncChannelIntoLocal(ctx, c.Param("id")); err != nil {
		// Remote unavailability is not an error for the UI; it keeps
		// whatever is already local.
		return presenter.OKWithWarning(c, h.messages.ByChannel(ctx, c.Param("id")),
			"remote sync unavailable; showing locally stored messages")
	}
	return presenter.OK(c, h.messages.ByChannel(ctx, c.Param("id")))
}

// --- search history ---

func (h *Handler) handleListHistory(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to list search history")
	}
	return presenter.OK(c, h.history.List(ctx, uid))
}

type recordSearchRequest struct {
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

func (h *Handler) handleRecordSearch(c echo.Context) error {
	ctx := c.Request().Context()

	uid := middleware.RequesterID(ctx)
	if uid == "" {
		return presenter.Unauthorized(c, "sign in to record searches")
	}

	var req recordSearchRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	entry, err := h.history.Record(ctx, uid, req.Query, req.ResultCount)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, entry)
}

// --- profiles ---

func (h *Handler) handleGetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.profiles.Get(ctx, c.Param("uid"))
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, profile)
}

type updateProfileRequest struct {
	Username      *string `json:"username"`
	PhotoURL      *string `json:"photoURL"`
	Bio           *string `json:"bio"`
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
}

func (h *Handler) handleUpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	profile, err := h.profiles.Update(ctx, c.Param("uid"), middleware.RequesterID(ctx), usecase.ProfilePatch{
		Username:      req.Username,
		PhotoURL:      req.PhotoURL,
		Bio:           req.Bio,
		Theme:         req.Theme,
		Notifications: req.Notifications,
	})
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, profile)
}

// --- realtime ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type  string   `json:"type"`
	Kinds []string `json:"kinds"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.BadRequestMessage(c, "realtime feed is not configured")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan edustake.Event)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Kinds
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
