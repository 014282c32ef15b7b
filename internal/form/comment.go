package form

import (
	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
)

// commentMaxLength はコメント本文の最大文字数。
const commentMaxLength = 1024

// CommentForm は記事へのコメント投稿フォーム。
type CommentForm struct {
	*Form
	comment *model.Comment
}

// NewCommentForm は束縛先コメントを指定してCommentFormを生成する。
func NewCommentForm(signer *csrf.Signer, comment *model.Comment) *CommentForm {
	f := &CommentForm{
		Form:    New("comment", signer),
		comment: comment,
	}
	f.Bind(comment)

	f.AddField(Field{
		Name:     "content",
		Validate: LengthBetween(1, commentMaxLength),
		Mapped:   true,
	})

	return f
}
