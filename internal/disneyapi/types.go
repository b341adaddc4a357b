package disneyapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/disneydex/internal/model"
)

// characterID は "_id" フィールドの値。
// 公開APIは数値で返すが、文字列で返すミラーにも対応する。
type characterID string

// UnmarshalJSON は数値・文字列のどちらのIDも文字列として受け取る。
func (id *characterID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = characterID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("_id は数値または文字列である必要があります: %w", err)
	}
	*id = characterID(n.String())
	return nil
}

// characterJSON はAPIが返すキャラクターオブジェクト。
type characterJSON struct {
	ID              characterID `json:"_id"`
	Name            string      `json:"name"`
	ImageURL        string      `json:"imageUrl"`
	Films           []string    `json:"films"`
	TVShows         []string    `json:"tvShows"`
	ParkAttractions []string    `json:"parkAttractions"`
}

// isEmpty は空オブジェクト（{}）かどうかを返す。
func (c characterJSON) isEmpty() bool {
	return c.ID == "" && strings.TrimSpace(c.Name) == ""
}

func (c characterJSON) toSummary() model.Character {
	return model.Character{
		ID:       string(c.ID),
		Name:     c.Name,
		ImageURL: c.ImageURL,
	}
}

func (c characterJSON) toDetail() *model.CharacterDetail {
	return &model.CharacterDetail{
		ID:              string(c.ID),
		Name:            c.Name,
		ImageURL:        c.ImageURL,
		Films:           c.Films,
		TVShows:         c.TVShows,
		ParkAttractions: c.ParkAttractions,
	}
}

// characterData は "data" フィールド。
// 名前検索で1件だけ一致した場合など、配列ではなく単一オブジェクトが返ることがある。
type characterData []characterJSON

// UnmarshalJSON は配列・単一オブジェクト・nullのいずれも受け付ける。
// 空オブジェクトは要素に含めない。
func (d *characterData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*d = nil
		return nil
	case b[0] == '[':
		var items []characterJSON
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make([]characterJSON, 0, len(items))
		for _, it := range items {
			if !it.isEmpty() {
				out = append(out, it)
			}
		}
		*d = out
		return nil
	case b[0] == '{':
		var item characterJSON
		if err := json.Unmarshal(b, &item); err != nil {
			return err
		}
		if item.isEmpty() {
			*d = nil
			return nil
		}
		*d = characterData{item}
		return nil
	default:
		return fmt.Errorf("data は配列またはオブジェクトである必要があります")
	}
}

// pageInfo は一覧レスポンスの "info" フィールド。
type pageInfo struct {
	TotalPages int `json:"totalPages"`
	Count      int `json:"count"`
}

// envelope はAPIレスポンス全体。
type envelope struct {
	Data characterData `json:"data"`
	Info pageInfo      `json:"info"`
}
