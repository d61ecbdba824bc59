package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Client_Do(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantData   string
		wantErrMsg string
		wantStatus int
	}{
		{
			name: "正常系: successエンベロープのdataを返す",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
				w.Write([]byte(`{"success":true,"data":{"id":"u1"}}`))
			},
			wantData: `{"id":"u1"}`,
		},
		{
			name: "異常系: 非2xxはボディのエラーメッセージを使う",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"success":false,"error":{"message":"Quiz not found"}}`))
			},
			wantErrMsg: "Quiz not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name: "異常系: エラーボディが無い非2xxはステータスから合成する",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`upstream down`))
			},
			wantErrMsg: "HTTP 502: Bad Gateway",
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "異常系: 2xxでもsuccess=falseはエラー扱い",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":false,"error":{"message":"RATE_LIMIT_EXCEEDED"}}`))
			},
			wantErrMsg: "RATE_LIMIT_EXCEEDED",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client, err := NewWithHTTPClient(srv.URL, srv.Client())
			require.NoError(t, err)

			data, err := client.Get(ctx, "/api/test")
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.True(t, IsStatus(err, tt.wantStatus))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantData, string(data))
		})
	}
}

func Test_Client_Post(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang", body["topic"])

		w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}))
	defer srv.Close()

	client, err := NewWithHTTPClient(srv.URL, srv.Client())
	require.NoError(t, err)

	data, err := client.Post(ctx, "/api/roadmaps/generate", map[string]string{"topic": "golang"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func Test_New_Validation(t *testing.T) {
	t.Run("異常系: base_urlが空", func(t *testing.T) {
		_, err := New("  ", 0)
		assert.Error(t, err)
	})

	t.Run("正常系: 末尾スラッシュは除去される", func(t *testing.T) {
		c, err := New("http://localhost:8001/", 0)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8001", c.baseURL)
	})
}
