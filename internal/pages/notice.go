package pages

import "errors"

// User-facing notices for save outcomes.
const (
	NoticeSaved      = "保存しました！"
	NoticeDuplicate  = "すでに保存されています"
	NoticeEmpty      = "URLまたはタイトルを入力してください"
	NoticeInvalidURL = "URLの形式が正しくありません"
	NoticeFailed     = "保存に失敗しました"
	NoticeDeleted    = "ページを削除しました"
)

// Notice maps the result of a save to the message shown to the user.
func Notice(err error) string {
	switch {
	case err == nil:
		return NoticeSaved
	case errors.Is(err, ErrDuplicate):
		return NoticeDuplicate
	case errors.Is(err, ErrValidation):
		return NoticeEmpty
	case errors.Is(err, ErrInvalidURL):
		return NoticeInvalidURL
	default:
		return NoticeFailed
	}
}
