package model

// Character は一覧・検索結果に表示するキャラクターのサマリー。
// 取得後は不変として扱い、一覧の更新時は丸ごと置き換える。
type Character struct {
	ID       string
	Name     string
	ImageURL string // 画像がない場合は空文字列
}

// CharacterDetail はキャラクター詳細画面で表示する情報。
// 出演作品はAPIが返した順序を保持する。
type CharacterDetail struct {
	ID              string
	Name            string
	ImageURL        string
	Films           []string
	TVShows         []string
	ParkAttractions []string
}

// HasAppearances は映画・TV番組・パークアトラクションのいずれかが存在するかを返す。
func (d *CharacterDetail) HasAppearances() bool {
	return len(d.Films) > 0 || len(d.TVShows) > 0 || len(d.ParkAttractions) > 0
}

// ListResult はキャラクター一覧取得または名前検索の結果。
// 名前検索の結果はページングされないため TotalPages は常に1となる。
type ListResult struct {
	Items      []Character
	TotalPages int
}
