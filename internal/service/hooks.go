package service

import (
	"cmsadmin/internal/models"
	"cmsadmin/internal/validation"
)

type writeKind int

const (
	writeCreate writeKind = iota
	writePatch
	writeReplace
)

// writeContext carries what record hooks may look at. current is nil on create.
type writeContext struct {
	kind          writeKind
	current       models.Record
	payload       models.Record
	sessionUserID int64
	now           string
	hashPasswords bool
}

type recordHook func(wc writeContext, next models.Record) error

var recordHooks = map[string]recordHook{
	models.CollectionPosts:      postHook,
	models.CollectionUsers:      userHook,
	models.CollectionCategories: categoryHook,
}

func applyHooks(collection string, wc writeContext, next models.Record) error {
	if hook, ok := recordHooks[collection]; ok {
		return hook(wc, next)
	}
	return nil
}

// stampTimes keeps createdAt stable and refreshes updatedAt unless the caller set it.
func stampTimes(wc writeContext, next models.Record) {
	if wc.current != nil && !wc.payload.Has("createdAt") {
		if v, ok := wc.current["createdAt"]; ok {
			next["createdAt"] = v
		}
	}
	if !next.Has("createdAt") {
		next["createdAt"] = wc.now
	}
	if !wc.payload.Has("updatedAt") {
		next["updatedAt"] = wc.now
	}
}

func postHook(wc writeContext, next models.Record) error {
	if wc.sessionUserID > 0 {
		next["authorId"] = wc.sessionUserID
	}

	if _, present := next["status"]; !present && wc.kind != writePatch {
		next["status"] = models.StatusDraft
	}
	if _, present := wc.payload["status"]; present || wc.kind != writePatch {
		if !models.IsValidStatus(next.String("status")) {
			return models.NewValidationError("Status inválido: use draft, published ou archived")
		}
	}

	if err := deriveSlug(wc, next, "title"); err != nil {
		return err
	}

	stampTimes(wc, next)

	// publishedAt is written once, when the post first becomes published.
	if wc.current != nil && wc.current.Has("publishedAt") {
		next["publishedAt"] = wc.current["publishedAt"]
	} else if next.String("status") == models.StatusPublished && !next.Has("publishedAt") {
		next["publishedAt"] = wc.now
	}
	return nil
}

func userHook(wc writeContext, next models.Record) error {
	// A blank password on edit means "keep the current one".
	if pw, present := wc.payload["password"]; present && wc.current != nil && (pw == nil || pw == "") {
		if cur, ok := wc.current["password"]; ok {
			next["password"] = cur
		} else {
			delete(next, "password")
		}
	}

	if _, present := next["role"]; !present && wc.kind != writePatch {
		next["role"] = models.RoleAuthor
	}
	if _, present := wc.payload["role"]; present || wc.kind != writePatch {
		if !models.IsValidRole(next.String("role")) {
			return models.NewValidationError("Função inválida: use admin, editor ou author")
		}
	}

	if _, present := wc.payload["email"]; present {
		if err := validateEmail(next.String("email")); err != nil {
			return err
		}
	}

	if wc.hashPasswords && wc.payload.Has("password") {
		if plain := next.String("password"); plain != "" {
			hashed, err := HashPassword(plain)
			if err != nil {
				return models.NewInternalError(err)
			}
			next["password"] = hashed
		}
	}

	stampTimes(wc, next)
	return nil
}

func categoryHook(wc writeContext, next models.Record) error {
	// postCount is computed on read and never stored.
	delete(next, "postCount")

	return deriveSlug(wc, next, "name")
}

// deriveSlug fills an empty slug from the source field and validates one the
// caller submitted.
func deriveSlug(wc writeContext, next models.Record, source string) error {
	if wc.payload.Has("slug") {
		if err := validation.ValidateSlug(next.String("slug")); err != nil {
			return models.NewValidationError("Slug inválido")
		}
		return nil
	}
	if !next.Has("slug") && next.Has(source) {
		next["slug"] = models.Slugify(next.String(source))
	}
	return nil
}

func validateEmail(email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError("Email inválido")
	}
	return nil
}
