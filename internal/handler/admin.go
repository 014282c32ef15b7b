package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/kiji/internal/form"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
	"github.com/hitoshi/kiji/internal/router"
)

// adminActionKey はダッシュボードのJSON操作に使うCSRFキー。
// 各行のdata属性に埋め込まれ、フロントエンドがPOST時に付与する。
const adminActionKey = "admin_action"

// dashboardData は管理ダッシュボードのデータ。
type dashboardData struct {
	page
	Section  string
	Users    []*model.User
	Posts    []*repository.PostSummary
	Comments []*repository.CommentDetail
	CSRF     string
}

// Dashboard は管理ダッシュボードのセクション（users/posts/comments）を表示する。
func (h *Handler) Dashboard(c *router.Context) (*router.Response, error) {
	data := dashboardData{
		page:    newPage(c, "管理ダッシュボード"),
		Section: c.Param("page"),
	}

	var err error
	switch data.Section {
	case "users":
		data.Users, err = h.users.ListAll(c.Context())
	case "posts":
		data.Posts, err = h.posts.ListAll(c.Context())
	case "comments":
		data.Comments, err = h.comments.ListAll(c.Context())
	default:
		return h.notFound(c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard %s: %w", data.Section, err)
	}

	data.CSRF, err = h.signer.Sign(adminActionKey, c.ClientIP(), c.UserAgent())
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}

	return h.render(http.StatusOK, "admin_dashboard", data)
}

// adminPostData は記事編集ページのデータ。
type adminPostData struct {
	page
	Form   *form.PostForm
	CSRF   string
	Action string
	IsNew  bool
}

// PostNewPage は新規記事フォームを表示する。
func (h *Handler) PostNewPage(c *router.Context) (*router.Response, error) {
	return h.renderPostForm(c, form.NewPostForm(h.signer, &model.Post{}), "/admin/post/new", true, http.StatusOK)
}

// PostCreate は新規記事を下書き状態で保存する。
func (h *Handler) PostCreate(c *router.Context) (*router.Response, error) {
	post := &model.Post{}
	postForm := form.NewPostForm(h.signer, post)
	if err := postForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle post form: %w", err)
	}

	if !postForm.IsValid(c) {
		return h.renderPostForm(c, postForm, "/admin/post/new", true, http.StatusUnprocessableEntity)
	}

	post.UserID = c.Principal().ID
	if err := h.manager.Flush(c.Context(), post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return router.Redirect(http.StatusSeeOther, "/admin/dashboard/posts"), nil
}

// PostEditPage は既存記事の編集フォームを表示する。
func (h *Handler) PostEditPage(c *router.Context) (*router.Response, error) {
	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return h.notFound(c)
	}

	postForm := form.NewPostForm(h.signer, post)
	postForm.SetValues(post)

	return h.renderPostForm(c, postForm, "/admin/post/"+post.ID+"/edit", false, http.StatusOK)
}

// PostUpdate は既存記事を更新する。
func (h *Handler) PostUpdate(c *router.Context) (*router.Response, error) {
	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return h.notFound(c)
	}

	action := "/admin/post/" + post.ID + "/edit"
	postForm := form.NewPostForm(h.signer, post)
	if err := postForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle post form: %w", err)
	}

	if !postForm.IsValid(c) {
		return h.renderPostForm(c, postForm, action, false, http.StatusUnprocessableEntity)
	}

	if err := h.manager.Flush(c.Context(), post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return router.Redirect(http.StatusSeeOther, "/admin/dashboard/posts"), nil
}

// renderPostForm は記事編集ページを組み立てる。
func (h *Handler) renderPostForm(c *router.Context, postForm *form.PostForm, action string, isNew bool, status int) (*router.Response, error) {
	token, err := postForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}

	title := "記事を編集"
	if isNew {
		title = "新規記事"
	}

	return h.render(status, "admin_post_edit", adminPostData{
		page:   newPage(c, title),
		Form:   postForm,
		CSRF:   token,
		Action: action,
		IsNew:  isNew,
	})
}

// verifyAdminAction はダッシュボード操作のCSRFトークンを検証する。
// 失敗時は403のJSONレスポンスを返す。
func (h *Handler) verifyAdminAction(c *router.Context) *router.Response {
	token := c.FormValue("_csrf")
	if token == "" || !h.signer.Verify(token, adminActionKey, c.ClientIP(), c.UserAgent()) {
		return router.JSON(http.StatusForbidden, map[string]any{
			"ok":      false,
			"code":    "CSRF_INVALID",
			"message": "セッションの有効期限が切れました。ページを再読み込みしてください。",
		})
	}
	return nil
}

// jsonAppError はAppErrorをJSONエラーペイロードへ変換する。
func jsonAppError(status int, appErr *model.AppError) *router.Response {
	return router.JSON(status, map[string]any{
		"ok":       false,
		"code":     appErr.Code,
		"message":  appErr.Message,
		"category": appErr.Category,
		"action":   appErr.Action,
	})
}

// TogglePublish は記事の公開状態を切り替える。
// 非公開に戻した場合は注目フラグも同時に解除する。
func (h *Handler) TogglePublish(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return jsonAppError(http.StatusNotFound, model.NewPostNotFoundError(c.Param("id"))), nil
	}

	post.IsPublished = !post.IsPublished
	if !post.IsPublished {
		post.IsFeatured = false
	}

	if err := h.manager.Flush(c.Context(), post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if post.IsPublished {
		h.metrics.RecordPostPublished()
	}

	return router.JSON(http.StatusOK, map[string]any{
		"ok":        true,
		"published": post.IsPublished,
		"featured":  post.IsFeatured,
	}), nil
}

// ToggleFeature は記事の注目状態を切り替える。
// 注目にできるのは公開済み記事のみで、同時に注目にできる件数には上限がある。
func (h *Handler) ToggleFeature(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return jsonAppError(http.StatusNotFound, model.NewPostNotFoundError(c.Param("id"))), nil
	}

	if !post.IsFeatured {
		if !post.IsPublished {
			return jsonAppError(http.StatusConflict, model.NewNotPublishedError()), nil
		}

		count, err := h.posts.CountFeatured(c.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to count featured posts: %w", err)
		}
		if count >= model.FeaturedLimit {
			return jsonAppError(http.StatusConflict, model.NewFeaturedLimitError()), nil
		}
	}

	post.IsFeatured = !post.IsFeatured
	if err := h.manager.Flush(c.Context(), post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return router.JSON(http.StatusOK, map[string]any{
		"ok":       true,
		"featured": post.IsFeatured,
	}), nil
}

// DeletePost は記事を削除する。
func (h *Handler) DeletePost(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	post, err := h.posts.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return jsonAppError(http.StatusNotFound, model.NewPostNotFoundError(c.Param("id"))), nil
	}

	if err := h.manager.Delete(c.Context(), post); err != nil {
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}

	return router.JSON(http.StatusOK, map[string]any{"ok": true}), nil
}

// ValidateComment はコメントを承認または却下する。
// 判定・判定者・判定日時は常に同時に設定される。
func (h *Handler) ValidateComment(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	comment, err := h.comments.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return jsonAppError(http.StatusNotFound, model.NewCommentNotFoundError(c.Param("id"))), nil
	}

	approved := c.FormValue("approved") == "true"
	comment.Validate(approved, c.Principal().ID, time.Now())

	if err := h.manager.Flush(c.Context(), comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	h.metrics.RecordCommentModerated(approved)

	return router.JSON(http.StatusOK, map[string]any{
		"ok":       true,
		"approved": approved,
	}), nil
}

// ToggleUserStatus はユーザーの有効/無効を切り替える。
// 無効化した場合は既存セッションも破棄する。
func (h *Handler) ToggleUserStatus(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	user, err := h.users.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return jsonAppError(http.StatusNotFound, model.NewUserNotFoundError()), nil
	}

	switch user.Status {
	case model.StatusRegistered:
		user.Status = model.StatusDeactivated
	case model.StatusDeactivated:
		user.Status = model.StatusRegistered
	default:
		// 確認待ちユーザーは対象外
		return jsonAppError(http.StatusConflict, model.NewUserNotFoundError()), nil
	}

	if err := h.manager.Flush(c.Context(), user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if user.Status == model.StatusDeactivated {
		if err := h.sessions.DeleteByUserID(c.Context(), user.ID); err != nil {
			return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
		}
	}

	return router.JSON(http.StatusOK, map[string]any{
		"ok":     true,
		"status": int(user.Status),
	}), nil
}

// ToggleUserRole はユーザーのロールを切り替える。
func (h *Handler) ToggleUserRole(c *router.Context) (*router.Response, error) {
	if resp := h.verifyAdminAction(c); resp != nil {
		return resp, nil
	}

	user, err := h.users.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return jsonAppError(http.StatusNotFound, model.NewUserNotFoundError()), nil
	}

	if user.Role == model.RoleAdmin {
		user.Role = model.RoleUser
	} else {
		user.Role = model.RoleAdmin
	}

	if err := h.manager.Flush(c.Context(), user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return router.JSON(http.StatusOK, map[string]any{
		"ok":   true,
		"role": user.Role,
	}), nil
}
