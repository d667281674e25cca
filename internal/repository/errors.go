package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateUser はemailまたはgoogle_idの一意制約違反を表す。
// 同一IdPアカウントの初回ログインが同時に走った場合に2件目のINSERTが失敗して返る。
// 呼び出し側は再検索して既存ユーザーを返すことでこの競合を回復する。
var ErrDuplicateUser = errors.New("user already exists")

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
