package router

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response はハンドラーが返すレスポンスの値表現。
// ステータス・ヘッダー・ボディ・Cookieを保持し、エッジ層が書き出す。
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	cookies []*http.Cookie
}

// NewResponse は空のResponseを生成する。
func NewResponse(status int) *Response {
	return &Response{
		Status: status,
		Header: make(http.Header),
	}
}

// HTML はHTMLボディのレスポンスを生成する。
func HTML(status int, body string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Body = []byte(body)
	return resp
}

// JSON は値をJSONエンコードしたレスポンスを生成する。
// エンコードに失敗した場合は500のエラーペイロードを返す。
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		resp := NewResponse(http.StatusInternalServerError)
		resp.Header.Set("Content-Type", "application/json")
		resp.Body = []byte(`{"ok":false,"error":"encoding failed"}`)
		return resp
	}

	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = body
	return resp
}

// Redirect はリダイレクトレスポンスを生成する。
func Redirect(status int, location string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Location", location)
	return resp
}

// SetCookie はレスポンスにSet-Cookieを追加する。
func (r *Response) SetCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// Write はレスポンスをhttp.ResponseWriterへ書き出す。
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	for _, c := range r.cookies {
		http.SetCookie(w, c)
	}

	w.WriteHeader(r.Status)
	if _, err := w.Write(r.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}
