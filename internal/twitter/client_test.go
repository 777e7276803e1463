package twitter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/twitter"
)

func newTestClient(t *testing.T, handler http.Handler) (*twitter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := twitter.NewClient(twitter.Config{
		APIBaseURL:    server.URL,
		UploadBaseURL: server.URL,
		BearerToken:   "test-token",
		RateLimitRPS:  1000,
	}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client, server
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := twitter.NewClient(twitter.Config{}, logger.NewNopLogger())
	if err == nil {
		t.Fatal("expected error for missing bearer token")
	}
}

func TestClient_CreateTweet(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("path = %q, want /2/tweets", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1234567890","text":"hello"}}`))
	}))

	id, err := client.CreateTweet(context.Background(), "hello", "media-1", "parent-1")
	if err != nil {
		t.Fatalf("CreateTweet() error: %v", err)
	}
	if id != "1234567890" {
		t.Errorf("tweet id = %q, want 1234567890", id)
	}
	if gotBody["text"] != "hello" {
		t.Errorf("request text = %v", gotBody["text"])
	}
	if _, ok := gotBody["media"]; !ok {
		t.Error("request should carry media ids")
	}
	if _, ok := gotBody["reply"]; !ok {
		t.Error("request should carry reply reference")
	}
}

func TestClient_CreateTweet_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, twitter.ErrRateLimited},
		{"forbidden", http.StatusForbidden, twitter.ErrForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))

			_, err := client.CreateTweet(context.Background(), "text", "", "")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("CreateTweet() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestClient_UploadMedia(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/media/upload.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("media_data") == "" {
			t.Error("media_data missing from form")
		}
		_, _ = w.Write([]byte(`{"media_id_string":"m-777"}`))
	}))

	mediaID, err := client.UploadMedia(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("UploadMedia() error: %v", err)
	}
	if mediaID != "m-777" {
		t.Errorf("mediaID = %q, want m-777", mediaID)
	}
}

func TestClient_UploadMedia_Failure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := client.UploadMedia(context.Background(), []byte("image-bytes"))
	if !errors.Is(err, twitter.ErrUploadFailed) {
		t.Fatalf("UploadMedia() error = %v, want %v", err, twitter.ErrUploadFailed)
	}
}

func TestClient_SearchRecent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/recent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("query"); q != "golang" {
			t.Errorf("query = %q, want golang", q)
		}
		if fields := r.URL.Query().Get("tweet.fields"); fields != "created_at,public_metrics" {
			t.Errorf("tweet.fields = %q", fields)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","text":"first","created_at":"2025-03-01T10:00:00Z",
			 "public_metrics":{"like_count":10,"retweet_count":5}},
			{"id":"2","text":"second","created_at":"2025-03-01T11:00:00Z",
			 "public_metrics":{"like_count":3,"retweet_count":0}}
		]}`))
	}))

	tweets, err := client.SearchRecent(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("SearchRecent() error: %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, want 2", len(tweets))
	}
	if tweets[0].EngagementScore() != 20 {
		t.Errorf("EngagementScore() = %d, want 20 (likes + 2*retweets)", tweets[0].EngagementScore())
	}
	if tweets[0].URL() != "https://twitter.com/i/web/status/1" {
		t.Errorf("URL() = %q", tweets[0].URL())
	}
}

func TestTweet_EngagementScore(t *testing.T) {
	tweet := twitter.Tweet{Likes: 7, Retweets: 4}
	if got := tweet.EngagementScore(); got != 15 {
		t.Errorf("EngagementScore() = %d, want 15", got)
	}
}
