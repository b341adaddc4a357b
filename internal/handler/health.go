package handler

import (
	"encoding/json"
	"net/http"
)

// Health はヘルスチェック用のハンドラー。
// GET /health
// Disney APIの疎通は確認しない。
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
