package form

import (
	"strings"

	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
)

// PostForm は記事の作成・編集フォーム。
// 本文はマークダウンとして保持するためHTML除去は行わない
// （表示時にレンダリング結果をサニタイズする）。
type PostForm struct {
	*Form
	post *model.Post
}

// NewPostForm は束縛先記事を指定してPostFormを生成する。
func NewPostForm(signer *csrf.Signer, post *model.Post) *PostForm {
	f := &PostForm{
		Form: New("post", signer),
		post: post,
	}
	f.Bind(post)

	f.AddField(Field{
		Name:     "title",
		Validate: LengthBetween(1, 128),
		Mapped:   true,
	})
	f.AddField(Field{
		Name:     "chapo",
		Validate: LengthBetween(1, 255),
		Mapped:   true,
	})
	f.AddField(Field{
		Name:     "content",
		Sanitize: trimOnly,
		Validate: LengthBetween(1, 65535),
		Mapped:   true,
	})

	return f
}

// SetValues は既存記事の内容をフォーム値へ反映する。編集ページの初期表示に使う。
func (f *PostForm) SetValues(post *model.Post) {
	f.SetValue("title", post.Title)
	f.SetValue("chapo", post.Chapo)
	f.SetValue("content", post.Content)
}

// trimOnly は前後の空白だけを除去する。
func trimOnly(raw string) string {
	return strings.TrimSpace(raw)
}
