package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"BeatStudio/cache"
	"BeatStudio/config"
	"BeatStudio/core/payment"
	"BeatStudio/core/pricing"
	"BeatStudio/logger"
	"BeatStudio/repository"
	"BeatStudio/storage"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo      repository.UserRepository
	beatRepo      repository.BeatRepository
	purchaseRepo  repository.PurchaseRepository
	cartRepo      repository.CartRepository
	recordingRepo repository.RecordingRepository
	bookingRepo   repository.BookingRepository
	chatRepo      repository.ChatRepository
	newsRepo      repository.NewsRepository

	checkout   *payment.CheckoutService
	reconciler *payment.Reconciler
	policy     *pricing.Policy
	counters   *cache.CounterCache

	cfg *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	beatRepo repository.BeatRepository,
	purchaseRepo repository.PurchaseRepository,
	cartRepo repository.CartRepository,
	recordingRepo repository.RecordingRepository,
	bookingRepo repository.BookingRepository,
	chatRepo repository.ChatRepository,
	newsRepo repository.NewsRepository,
	checkout *payment.CheckoutService,
	reconciler *payment.Reconciler,
	policy *pricing.Policy,
	counters *cache.CounterCache,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:      userRepo,
		beatRepo:      beatRepo,
		purchaseRepo:  purchaseRepo,
		cartRepo:      cartRepo,
		recordingRepo: recordingRepo,
		bookingRepo:   bookingRepo,
		chatRepo:      chatRepo,
		newsRepo:      newsRepo,
		checkout:      checkout,
		reconciler:    reconciler,
		policy:        policy,
		counters:      counters,
		cfg:           cfg,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes an {"error": ...} body. Argument order matches
// http.Error so call sites read the same.
func respondError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// pathID extracts a numeric path variable set by the router.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// streamObject copies an object from storage to the response as a download.
func (h *APIHandler) streamObject(w http.ResponseWriter, r *http.Request, objectKey, contentType string) {
	obj, err := storage.GetObject(r.Context(), objectKey)
	if err != nil {
		logger.Error("Failed to open object", logger.String("object", objectKey), logger.ErrorField(err))
		respondError(w, "File not found", http.StatusNotFound)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(objectKey)))
	if _, err := io.Copy(w, obj); err != nil {
		logger.Error("Error streaming object", logger.String("object", objectKey), logger.ErrorField(err))
	}
}
