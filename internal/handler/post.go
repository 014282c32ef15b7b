package handler

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hitoshi/kiji/internal/form"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
	"github.com/hitoshi/kiji/internal/router"
)

// postsPerPage は記事一覧の1ページあたりの件数。
const postsPerPage = 10

// homeData はホームページのデータ。
type homeData struct {
	page
	Featured []*repository.PostSummary
	Latest   []*repository.PostSummary
}

// Home は注目記事と新着記事を表示する。
func (h *Handler) Home(c *router.Context) (*router.Response, error) {
	featured, err := h.posts.ListFeatured(c.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to list featured posts: %w", err)
	}

	latest, err := h.posts.ListPublished(c.Context(), postsPerPage, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest posts: %w", err)
	}

	return h.render(http.StatusOK, "home", homeData{
		page:     newPage(c, "ホーム"),
		Featured: featured,
		Latest:   latest,
	})
}

// postListData は記事一覧ページのデータ。
type postListData struct {
	page
	Posts      []*repository.PostSummary
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

// PostList は公開済み記事のページネーション付き一覧を表示する。
func (h *Handler) PostList(c *router.Context) (*router.Response, error) {
	pageNum, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNum < 1 {
		return h.notFound(c)
	}

	total, err := h.posts.CountPublished(c.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to count published posts: %w", err)
	}

	totalPages := (total + postsPerPage - 1) / postsPerPage
	if totalPages < 1 {
		totalPages = 1
	}
	if pageNum > totalPages {
		return h.notFound(c)
	}

	summaries, err := h.posts.ListPublished(c.Context(), postsPerPage, (pageNum-1)*postsPerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}

	return h.render(http.StatusOK, "posts", postListData{
		page:       newPage(c, "記事一覧"),
		Posts:      summaries,
		Page:       pageNum,
		TotalPages: totalPages,
		HasPrev:    pageNum > 1,
		HasNext:    pageNum < totalPages,
		PrevPage:   pageNum - 1,
		NextPage:   pageNum + 1,
	})
}

// postDetailData は記事詳細ページのデータ。
type postDetailData struct {
	page
	Post         *model.Post
	AuthorPseudo string
	Content      template.HTML
	Comments     []*repository.CommentDetail
	Form         *form.CommentForm
	CSRF         string
}

// PostDetail は記事本文と承認済みコメント、コメントフォームを表示する。
// 未公開記事は管理者以外には404として扱う。
func (h *Handler) PostDetail(c *router.Context) (*router.Response, error) {
	post, err := h.findVisiblePost(c)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return h.notFound(c)
	}

	commentForm := form.NewCommentForm(h.signer, &model.Comment{})
	return h.renderPostDetail(c, post, commentForm, http.StatusOK)
}

// SubmitComment はコメントを受け付け、承認待ち状態で保存する。
// ROLE_USERゲートの背後にあるため、呼び出し時点で認証済みが保証される。
func (h *Handler) SubmitComment(c *router.Context) (*router.Response, error) {
	post, err := h.findVisiblePost(c)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return h.notFound(c)
	}

	comment := &model.Comment{}
	commentForm := form.NewCommentForm(h.signer, comment)
	if err := commentForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle comment form: %w", err)
	}

	if !commentForm.IsValid(c) {
		return h.renderPostDetail(c, post, commentForm, http.StatusUnprocessableEntity)
	}

	comment.UserID = c.Principal().ID
	comment.PostID = post.ID
	if err := h.manager.Flush(c.Context(), comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	h.metrics.RecordCommentSubmitted()

	return router.Redirect(http.StatusSeeOther, "/post/"+post.ID), nil
}

// findVisiblePost はパスパラメータの記事を取得する。
// 未公開記事は管理者のみ閲覧できる（それ以外にはnilを返す）。
func (h *Handler) findVisiblePost(c *router.Context) (*model.Post, error) {
	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, nil
	}

	if !post.IsPublished {
		principal := c.Principal()
		if principal == nil || !principal.IsAdmin() {
			return nil, nil
		}
	}

	return post, nil
}

// renderPostDetail は記事詳細ページを組み立てる。
func (h *Handler) renderPostDetail(c *router.Context, post *model.Post, commentForm *form.CommentForm, status int) (*router.Response, error) {
	author, err := h.users.FindByID(c.Context(), post.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post author: %w", err)
	}
	authorPseudo := ""
	if author != nil {
		authorPseudo = author.Pseudo
	}

	comments, err := h.comments.ListApprovedByPost(c.Context(), post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	content, err := h.markdown.Render(post.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render post content: %w", err)
	}

	csrfToken := ""
	if c.IsAuthenticated() {
		csrfToken, err = commentForm.CSRFToken(c)
		if err != nil {
			return nil, fmt.Errorf("failed to issue csrf token: %w", err)
		}
	}

	return h.render(status, "post", postDetailData{
		page:         newPage(c, post.Title),
		Post:         post,
		AuthorPseudo: authorPseudo,
		Content:      content,
		Comments:     comments,
		Form:         commentForm,
		CSRF:         csrfToken,
	})
}
