package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := NewCharacterNotFoundError("Mickey")
	want := "[CHARACTER_NOT_FOUND] キャラクターが見つかりません: Mickey"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", NewCharacterNotFoundError("x"), true},
		{"wrapped not found", fmt.Errorf("search: %w", NewCharacterNotFoundError("x")), true},
		{"fetch failed", NewFetchFailedError("timeout"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFetchFailed(t *testing.T) {
	if !IsFetchFailed(fmt.Errorf("load: %w", NewFetchFailedError("status 500"))) {
		t.Error("ラップされた取得失敗エラーを検出できるべき")
	}
	if IsFetchFailed(NewCharacterNotFoundError("x")) {
		t.Error("未検出エラーは取得失敗として扱わない")
	}
}

func TestCharacterDetail_HasAppearances(t *testing.T) {
	empty := &CharacterDetail{ID: "1", Name: "Nobody"}
	if empty.HasAppearances() {
		t.Error("出演情報がない場合はfalseであるべき")
	}

	withFilm := &CharacterDetail{ID: "2", Films: []string{"Fantasia"}}
	if !withFilm.HasAppearances() {
		t.Error("映画がある場合はtrueであるべき")
	}

	withPark := &CharacterDetail{ID: "3", ParkAttractions: []string{"Mickey's PhilharMagic"}}
	if !withPark.HasAppearances() {
		t.Error("アトラクションがある場合はtrueであるべき")
	}
}
