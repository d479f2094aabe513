package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"BeatStudio/core/access"
	"BeatStudio/core/auth"
	"BeatStudio/logger"
	"BeatStudio/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatHub tracks live websocket connections. User connections are keyed by
// user ID; staff connections all receive every conversation's traffic.
type chatHub struct {
	users sync.Map // userID -> *chatConn
	staff sync.Map // *chatConn -> struct{}
}

type chatConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *chatConn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

var hub = &chatHub{}

// pushToUser delivers a frame to the conversation owner if they are online.
func (h *chatHub) pushToUser(userID int64, push *model.ChatPush) {
	if v, ok := h.users.Load(userID); ok {
		if err := v.(*chatConn).send(push); err != nil {
			logger.Warn("websocket write to user failed", logger.Int64("userId", userID), logger.ErrorField(err))
		}
	}
}

// pushToStaff delivers a frame to every connected staff member.
func (h *chatHub) pushToStaff(push *model.ChatPush) {
	h.staff.Range(func(key, _ interface{}) bool {
		if err := key.(*chatConn).send(push); err != nil {
			logger.Warn("websocket write to staff failed", logger.ErrorField(err))
		}
		return true
	})
}

// GetChatHistoryHandler returns the caller's conversation. Staff pass
// ?userId= to read any conversation.
func (h *APIHandler) GetChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	_, targetID, ok := h.resolveConversation(w, r)
	if !ok {
		return
	}

	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	messages, err := h.chatRepo.GetMessagesByUser(targetID, limit)
	if err != nil {
		logger.Error("Failed to load chat history", logger.Int64("userId", targetID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// SendChatMessageHandler appends a message to a conversation and pushes it
// to the other side.
func (h *APIHandler) SendChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	role, _ := GetRoleFromContext(r.Context())
	isStaff := access.Can(role, access.StaffChat)

	var req model.ChatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(w, "Message content is required", http.StatusBadRequest)
		return
	}

	msg := &model.ChatMessage{
		UserID:     userID,
		SenderRole: model.ChatSenderUser,
		Content:    strings.TrimSpace(req.Content),
	}
	if isStaff {
		if req.UserID <= 0 {
			respondError(w, "Target userId is required for staff messages", http.StatusBadRequest)
			return
		}
		msg.UserID = req.UserID
		msg.SenderRole = model.ChatSenderStaff
	}

	id, err := h.chatRepo.CreateMessage(msg)
	if err != nil {
		logger.Error("Failed to store chat message", logger.Int64("userId", msg.UserID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	msg.ID = id
	msg.ReadByUser = msg.SenderRole == model.ChatSenderUser
	msg.ReadByStaff = msg.SenderRole == model.ChatSenderStaff

	// Bump the unread counter for the receiving side and push live.
	push := &model.ChatPush{Type: "message", Message: msg}
	if msg.SenderRole == model.ChatSenderStaff {
		if err := h.counters.IncrUnread(r.Context(), msg.UserID, model.ChatSenderUser); err != nil {
			logger.Warn("Failed to bump unread counter", logger.ErrorField(err))
		}
		hub.pushToUser(msg.UserID, push)
	} else {
		if err := h.counters.IncrUnread(r.Context(), msg.UserID, model.ChatSenderStaff); err != nil {
			logger.Warn("Failed to bump unread counter", logger.ErrorField(err))
		}
		hub.pushToStaff(push)
	}

	writeJSON(w, http.StatusCreated, msg)
}

// ChatUnreadHandler reports the caller's unread message count.
func (h *APIHandler) ChatUnreadHandler(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.resolveConversation(w, r)
	if !ok {
		return
	}
	role, _ := GetRoleFromContext(r.Context())
	side := model.ChatSenderUser
	if access.Can(role, access.StaffChat) && targetID != userID {
		side = model.ChatSenderStaff
	}

	count, err := h.chatRepo.CountUnread(targetID, side)
	if err != nil {
		logger.Error("Failed to count unread", logger.Int64("userId", targetID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, model.ChatUnreadResponse{Unread: count})
}

// ChatMarkReadHandler marks a conversation read for the caller's side and
// resets the cached counter.
func (h *APIHandler) ChatMarkReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.resolveConversation(w, r)
	if !ok {
		return
	}
	role, _ := GetRoleFromContext(r.Context())
	side := model.ChatSenderUser
	if access.Can(role, access.StaffChat) && targetID != userID {
		side = model.ChatSenderStaff
	}

	if err := h.chatRepo.MarkRead(targetID, side); err != nil {
		logger.Error("Failed to mark chat read", logger.Int64("userId", targetID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.counters.ResetUnread(r.Context(), targetID, side); err != nil {
		logger.Warn("Failed to reset unread counter", logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListChatConversationsHandler returns the staff inbox: conversation owners
// ordered by freshest message.
func (h *APIHandler) ListChatConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.chatRepo.ListConversations()
	if err != nil {
		logger.Error("Failed to list conversations", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userIDs)
}

// ChatWebSocketHandler keeps a live connection for message pushes. The token
// comes in the query string because browsers cannot set headers on websocket
// dials.
func (h *APIHandler) ChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	c := &chatConn{conn: conn}
	if access.Can(claims.Role, access.StaffChat) {
		hub.staff.Store(c, struct{}{})
		defer hub.staff.Delete(c)
	} else {
		hub.users.Store(claims.UserID, c)
		defer hub.users.Delete(claims.UserID)
	}

	logger.Info("Chat websocket connected",
		logger.Int64("userId", claims.UserID),
		logger.String("role", claims.Role))

	// Drain until the peer disconnects. Messages are sent over HTTP; the
	// socket is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// resolveConversation decides which conversation the caller addresses: their
// own, or for staff the one named by ?userId=.
func (h *APIHandler) resolveConversation(w http.ResponseWriter, r *http.Request) (callerID, targetID int64, ok bool) {
	callerID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return 0, 0, false
	}
	targetID = callerID

	if q := r.URL.Query().Get("userId"); q != "" {
		role, _ := GetRoleFromContext(r.Context())
		if !access.Can(role, access.StaffChat) {
			respondError(w, "Forbidden", http.StatusForbidden)
			return 0, 0, false
		}
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			respondError(w, "Invalid userId", http.StatusBadRequest)
			return 0, 0, false
		}
		targetID = id
	}
	return callerID, targetID, true
}
