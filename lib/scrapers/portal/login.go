package portal

import (
	"attendqr/lib/htmlutil"
	"attendqr/lib/textutil"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Credentials struct {
	Username string
	Password string
}

// LoginFields are the form field names the credentials are posted under.
type LoginFields struct {
	Username string
	Password string
}

func isLoginForm(form *goquery.Selection) bool {
	if textutil.ContainsFold(htmlutil.SelectionAttr(form, "action"), "login") {
		return true
	}
	found := false
	form.Find("input").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		if textutil.ContainsAnyFold(htmlutil.SelectionAttr(input, "name"), loginFormInputNames) {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindLoginForm returns the resolved action of the first form in doc that
// looks like a login form.
func FindLoginForm(doc *goquery.Document, baseUrl string) (string, bool) {
	var action string
	found := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if !isLoginForm(form) {
			return true
		}
		action = htmlutil.Resolve(baseUrl, htmlutil.SelectionAttr(form, "action"))
		found = true
		return false
	})
	return action, found
}

// InferLoginFields guesses which inputs of a login page take the username and
// password, later inputs override earlier ones.
func InferLoginFields(doc *goquery.Document) LoginFields {
	var fields LoginFields
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := htmlutil.SelectionAttr(input, "name")
		if name == "" {
			return
		}
		inputType := textutil.NormalizeName(htmlutil.SelectionAttr(input, "type"))
		if nonCredentialInputTypes[inputType] {
			return
		}

		switch {
		case inputType == "text" || textutil.ContainsAnyFold(name, usernameFieldHints):
			fields.Username = name
		case inputType == "password" || textutil.ContainsAnyFold(name, passwordFieldHints):
			fields.Password = name
		}
	})

	if fields.Username == "" {
		fields.Username = defaultUsernameField
	}
	if fields.Password == "" {
		fields.Password = defaultPasswordField
	}
	return fields
}

// HiddenFields collects the named hidden inputs of doc (viewstate, csrf and
// login tokens) so they can be posted back with the credentials.
func HiddenFields(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		if !textutil.EqualFold(htmlutil.SelectionAttr(input, "type"), "hidden") {
			return
		}
		name := htmlutil.SelectionAttr(input, "name")
		if name == "" {
			return
		}
		out[name] = htmlutil.SelectionAttr(input, "value")
	})
	return out
}

func (e Extractor) findLoginUrl(ctx context.Context, f Fetcher, baseUrl string) (string, error) {
	ctx, span := tracer.Start(ctx, "findLoginUrl")
	defer span.End()

	page, err := f.Get(ctx, baseUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch main page")
		return "", err
	}
	doc, err := page.Document()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse main page")
		return "", err
	}
	if action, ok := FindLoginForm(doc, baseUrl); ok {
		return action, nil
	}

	for _, path := range e.loginPaths() {
		link := htmlutil.JoinURL(baseUrl, path)
		page, err := f.Get(ctx, link)
		if err != nil {
			slog.DebugContext(ctx, "login candidate unreachable", "url", link, "err", err)
			continue
		}
		if page.OK() && textutil.ContainsFold(string(page.Body), "login") {
			return link, nil
		}
	}

	span.SetStatus(codes.Error, ErrLoginNotFound.Error())
	return "", ErrLoginNotFound
}

func (e Extractor) login(ctx context.Context, f Fetcher, baseUrl string, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	loginUrl, err := e.findLoginUrl(ctx, f, baseUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to find login url")
		return err
	}
	span.SetAttributes(attribute.String("login_url", loginUrl))
	slog.InfoContext(ctx, "found login url", "url", loginUrl)

	page, err := f.Get(ctx, loginUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := page.Document()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login page")
		return err
	}

	fields := InferLoginFields(doc)
	form := HiddenFields(doc)
	form[fields.Username] = creds.Username
	form[fields.Password] = creds.Password
	slog.DebugContext(ctx, "inferred login fields", "username_field", fields.Username, "password_field", fields.Password)

	res, err := f.PostForm(ctx, loginUrl, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	if !res.Success() {
		span.SetStatus(codes.Error, "login request rejected")
		return fmt.Errorf("%w: login returned %d", ErrStatus, res.Status)
	}

	slog.InfoContext(ctx, "login request completed", "status", res.Status)
	return nil
}
