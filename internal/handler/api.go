package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/model"
	"github.com/hitoshi/disneydex/internal/security"
)

// APIHandler はキャラクター情報のJSON APIハンドラー。
// 画面の状態は持たず、リクエストごとにDisney APIへ問い合わせる。
type APIHandler struct {
	source    disneyapi.CharacterSource
	sanitizer security.TextSanitizerService
	pageSize  int
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(source disneyapi.CharacterSource, sanitizer security.TextSanitizerService, pageSize int) *APIHandler {
	if pageSize < 1 {
		pageSize = disneyapi.DefaultPageSize
	}
	return &APIHandler{
		source:    source,
		sanitizer: sanitizer,
		pageSize:  pageSize,
	}
}

// characterResponse は一覧の1件分のAPIレスポンス。
type characterResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// characterListResponse は一覧・検索のAPIレスポンス。
type characterListResponse struct {
	Items      []characterResponse `json:"items"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
	Name       string              `json:"name,omitempty"`
}

// characterDetailResponse は詳細のAPIレスポンス。
type characterDetailResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ImageURL        string   `json:"image_url"`
	Films           []string `json:"films"`
	TVShows         []string `json:"tv_shows"`
	ParkAttractions []string `json:"park_attractions"`
}

// ListCharacters はキャラクター一覧または名前検索の結果を返す。
// GET /api/characters?page=N
// GET /api/characters?name=X （nameが指定された場合はpageを無視する）
func (h *APIHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if name := strings.TrimSpace(q.Get("name")); name != "" {
		result, err := h.source.SearchByName(r.Context(), name)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.toListResponse(result, 1, name))
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handleServiceError(w, model.NewInvalidPageError(raw))
			return
		}
		page = n
	}

	result, err := h.source.ListCharacters(r.Context(), page, h.pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toListResponse(result, page, ""))
}

// GetCharacter はキャラクター詳細を返す。
// GET /api/characters/{id}
func (h *APIHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.source.GetCharacter(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, characterDetailResponse{
		ID:              detail.ID,
		Name:            h.sanitizer.Text(detail.Name),
		ImageURL:        h.sanitizer.ImageURL(detail.ImageURL),
		Films:           nonNil(h.sanitizer.Texts(detail.Films)),
		TVShows:         nonNil(h.sanitizer.Texts(detail.TVShows)),
		ParkAttractions: nonNil(h.sanitizer.Texts(detail.ParkAttractions)),
	})
}

func (h *APIHandler) toListResponse(result *model.ListResult, page int, name string) characterListResponse {
	items := make([]characterResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, characterResponse{
			ID:       c.ID,
			Name:     h.sanitizer.Text(c.Name),
			ImageURL: h.sanitizer.ImageURL(c.ImageURL),
		})
	}
	return characterListResponse{
		Items:      items,
		Page:       page,
		TotalPages: result.TotalPages,
		Name:       name,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// nonNil はJSONでnullではなく空配列を返すためにnilスライスを置き換える。
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
