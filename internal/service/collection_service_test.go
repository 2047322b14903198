package service

import (
	"context"
	"testing"
	"time"

	"cmsadmin/internal/featureflags"
	"cmsadmin/internal/models"
	"cmsadmin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollectionFixture(t *testing.T, opts CollectionOptions) (*CollectionService, func(time.Time)) {
	t.Helper()
	svc := NewCollectionService(testutil.NewJSONRepo(t), opts)
	now, set := clock(fixedNow)
	svc.now = now
	return svc, set
}

func stamp(t time.Time) string { return models.Timestamp(t) }

func TestCollectionService_CreatePost(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	post, etag, err := svc.Create(ctx, WriteInput{
		Collection:    models.CollectionPosts,
		Payload:       models.Record{"title": "Olá, Mundo!", "status": "published", "authorId": int64(99), "tags": []any{"go"}},
		SessionUserID: 7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, etag)
	assert.Equal(t, int64(1), post["id"])
	assert.Equal(t, "ola-mundo", post["slug"])
	assert.Equal(t, int64(7), post["authorId"], "author comes from the session")
	assert.Equal(t, stamp(fixedNow), post["createdAt"])
	assert.Equal(t, stamp(fixedNow), post["updatedAt"])
	assert.Equal(t, stamp(fixedNow), post["publishedAt"])

	anon, _, err := svc.Create(ctx, WriteInput{
		Collection: models.CollectionPosts,
		Payload:    models.Record{"title": "Rascunho", "slug": "meu-slug", "authorId": int64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), anon["authorId"], "anonymous writes keep the submitted author")
	assert.Equal(t, "meu-slug", anon["slug"])
	assert.Equal(t, models.StatusDraft, anon["status"])
	assert.NotContains(t, anon, "publishedAt")
}

func TestCollectionService_PostValidation(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "x", "status": "live"}})
	requireAppError(t, err, models.CodeValidation)

	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "x", "slug": "Not A Slug"}})
	requireAppError(t, err, models.CodeValidation)

	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "ok"}})
	require.NoError(t, err)
	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"status": "deleted"}})
	requireAppError(t, err, models.CodeValidation)
}

func TestCollectionService_PublishedAtIsWrittenOnce(t *testing.T) {
	svc, setNow := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "Post", "status": "draft"}})
	require.NoError(t, err)

	t1 := fixedNow.Add(time.Hour)
	setNow(t1)
	post, _, err := svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"status": "published"}})
	require.NoError(t, err)
	assert.Equal(t, stamp(t1), post["publishedAt"])
	assert.Equal(t, stamp(fixedNow), post["createdAt"])
	assert.Equal(t, stamp(t1), post["updatedAt"])

	steps := []struct {
		name    string
		replace bool
		payload models.Record
	}{
		{"back to draft", false, models.Record{"status": "draft"}},
		{"published again", false, models.Record{"status": "published"}},
		{"client tries to move it", false, models.Record{"publishedAt": "1999-01-01T00:00:00.000Z"}},
		{"full replace without the field", true, models.Record{"title": "Post v2", "status": "published"}},
	}
	for i, step := range steps {
		setNow(t1.Add(time.Duration(i+1) * time.Hour))
		in := WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: step.payload}
		if step.replace {
			post, _, err = svc.Replace(ctx, in)
		} else {
			post, _, err = svc.Patch(ctx, in)
		}
		require.NoError(t, err, step.name)
		assert.Equal(t, stamp(t1), post["publishedAt"], step.name)
	}

	assert.Equal(t, "Post v2", post["title"])
	assert.Equal(t, stamp(fixedNow), post["createdAt"], "replace keeps createdAt")
}

func TestCollectionService_PatchIsShallowMerge(t *testing.T) {
	svc, setNow := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{
		"title": "Title", "content": "Body", "tags": []any{"a", "b"}, "seo": map[string]any{"title": "x", "noindex": true},
	}})
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	setNow(later)
	post, _, err := svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{
		"content": "New body", "seo": map[string]any{"title": "y"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Title", post["title"])
	assert.Equal(t, "New body", post["content"])
	assert.Equal(t, []any{"a", "b"}, post["tags"])
	assert.Equal(t, map[string]any{"title": "y"}, post["seo"], "nested objects are replaced, not merged")
	assert.Equal(t, stamp(later), post["updatedAt"])

	replaced, _, err := svc.Replace(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "Only"}})
	require.NoError(t, err)
	assert.NotContains(t, replaced, "content")
	assert.Equal(t, int64(1), replaced["id"])
}

func TestCollectionService_Users(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	user, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionUsers, Payload: models.Record{
		"name": "Ana", "email": "ana@example.com", "password": "first",
	}})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAuthor, user["role"])
	assert.Equal(t, "first", user["password"])

	user, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionUsers, ID: 1, Payload: models.Record{
		"name": "Ana Maria", "password": "",
	}})
	require.NoError(t, err)
	assert.Equal(t, "first", user["password"], "blank password keeps the current one")
	assert.Equal(t, "Ana Maria", user["name"])

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionUsers, ID: 1, Payload: models.Record{"role": "root"}})
	requireAppError(t, err, models.CodeValidation)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionUsers, ID: 1, Payload: models.Record{"email": "nope"}})
	requireAppError(t, err, models.CodeValidation)
}

func TestCollectionService_PasswordHashing(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{HashPasswords: true})
	ctx := context.Background()

	user, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionUsers, Payload: models.Record{
		"email": "ana@example.com", "password": "secret", "role": "editor",
	}})
	require.NoError(t, err)
	hashed := user.String("password")
	assert.True(t, IsPasswordHash(hashed))
	assert.True(t, PasswordMatches(hashed, "secret"))

	user, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionUsers, ID: 1, Payload: models.Record{"password": ""}})
	require.NoError(t, err)
	assert.Equal(t, hashed, user["password"])

	auth := NewAuthService(svc.repo, LegacyTokenIssuer{})
	_, err = auth.Login(ctx, "ana@example.com", "secret")
	assert.NoError(t, err)
}

func TestCollectionService_RedactsPasswordsWhenFlagged(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{Flags: featureflags.NewManager("redact_user_passwords=on")})
	ctx := context.Background()

	created, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionUsers, Payload: models.Record{"email": "a@b.co", "password": "x"}})
	require.NoError(t, err)
	assert.NotContains(t, created, "password")

	res, err := svc.List(ctx, models.CollectionUsers, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.NotContains(t, res.Items[0], "password")

	got, _, err := svc.Get(ctx, models.CollectionUsers, 1, 0)
	require.NoError(t, err)
	assert.NotContains(t, got, "password")

	stored, err := svc.repo.Get(ctx, models.CollectionUsers, 1)
	require.NoError(t, err)
	assert.Equal(t, "x", stored["password"])
}

func TestCollectionService_CategoryPostCount(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	cat, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionCategories, Payload: models.Record{"name": "Tecnologia & Ciência", "postCount": 40}})
	require.NoError(t, err)
	assert.Equal(t, "tecnologia-ciencia", cat["slug"])
	assert.NotContains(t, cat, "postCount")

	for _, category := range []string{"tecnologia-ciencia", "tecnologia-ciencia", "outra"} {
		_, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "p", "category": category}})
		require.NoError(t, err)
	}

	got, _, err := svc.Get(ctx, models.CollectionCategories, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got["postCount"])

	res, err := svc.List(ctx, models.CollectionCategories, map[string][]string{"postCount_gte": {"2"}}, 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	stored, err := svc.repo.Get(ctx, models.CollectionCategories, 1)
	require.NoError(t, err)
	assert.NotContains(t, stored, "postCount")
}

func TestCollectionService_IfMatch(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, created, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "v1"}})
	require.NoError(t, err)

	_, etag, err := svc.Get(ctx, models.CollectionPosts, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, created, etag)

	_, next, err := svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v2"}, IfMatch: etag})
	require.NoError(t, err)
	assert.NotEqual(t, etag, next)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v3"}, IfMatch: etag})
	requireAppError(t, err, models.CodePreconditionFailed)

	got, _, err := svc.Get(ctx, models.CollectionPosts, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "v2", got["title"])

	_, _, err = svc.Replace(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v3"}, IfMatch: "W/" + next})
	assert.NoError(t, err)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v4"}, IfMatch: "*"})
	assert.NoError(t, err)
}

func TestCollectionService_RequireIfMatchFlag(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{Flags: featureflags.NewManager("require_if_match=on")})
	ctx := context.Background()

	_, etag, err := svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "v1"}})
	require.NoError(t, err)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v2"}})
	requireAppError(t, err, models.CodePreconditionRequired)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 1, Payload: models.Record{"title": "v2"}, IfMatch: etag})
	assert.NoError(t, err)
}

func TestCollectionService_ErrorsAndDelete(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, _, err := svc.Get(ctx, models.CollectionPosts, 5, 0)
	requireAppError(t, err, models.CodeNotFound)

	_, _, err = svc.Patch(ctx, WriteInput{Collection: models.CollectionPosts, ID: 5, Payload: models.Record{"title": "x"}})
	requireAppError(t, err, models.CodeNotFound)

	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionMedia, Payload: models.Record{"id": int64(10)}})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionMedia, Payload: models.Record{"id": int64(10)}})
	requireAppError(t, err, models.CodeConflict)

	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionMedia, Payload: models.Record{"id": "ten"}})
	requireAppError(t, err, models.CodeValidation)

	_, err = svc.List(ctx, "comments", nil, 0)
	requireAppError(t, err, models.CodeNotFound)

	_, err = svc.List(ctx, models.CollectionPosts, map[string][]string{"_page": {"abc"}}, 0)
	requireAppError(t, err, models.CodeValidation)

	require.NoError(t, svc.Delete(ctx, models.CollectionMedia, 10))
	_, _, err = svc.Get(ctx, models.CollectionMedia, 10, 0)
	requireAppError(t, err, models.CodeNotFound)
	requireAppError(t, svc.Delete(ctx, models.CollectionMedia, 10), models.CodeNotFound)
}

func TestCollectionService_DeleteUserDoesNotCascade(t *testing.T) {
	svc, _ := newCollectionFixture(t, CollectionOptions{})
	ctx := context.Background()

	_, _, err := svc.Create(ctx, WriteInput{Collection: models.CollectionUsers, Payload: models.Record{"email": "a@b.co"}})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, WriteInput{Collection: models.CollectionPosts, Payload: models.Record{"title": "p"}, SessionUserID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, models.CollectionUsers, 1))

	post, _, err := svc.Get(ctx, models.CollectionPosts, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post["authorId"])
}
