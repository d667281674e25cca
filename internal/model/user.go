// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回ログイン時にGoogleプロフィールから作成され、以降は変更されない。
// 再ログイン時のプロフィール同期は行わない（表示名・画像の陳腐化は許容する）。
type User struct {
	ID        string
	Email     string
	Name      string
	Picture   string // プロフィール画像URL。空の場合あり。
	GoogleID  string
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// Cookieには不透明なセッションIDのみを保持し、実体はサーバー側に永続化する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
