package portal

import (
	"context"
)

type request struct {
	Method string
	Url    string
	Form   map[string]string
}

// fakeFetcher serves canned pages by url, anything unknown is a 404.
type fakeFetcher struct {
	pages    map[string]Page
	failures map[string]error
	requests []request
}

func (f *fakeFetcher) respond(link string) (Page, error) {
	if err, ok := f.failures[link]; ok {
		return Page{}, err
	}
	page, ok := f.pages[link]
	if !ok {
		return Page{Url: link, Status: 404}, nil
	}
	page.Url = link
	if page.Status == 0 {
		page.Status = 200
	}
	return page, nil
}

func (f *fakeFetcher) Get(ctx context.Context, link string) (Page, error) {
	f.requests = append(f.requests, request{Method: "GET", Url: link})
	return f.respond(link)
}

func (f *fakeFetcher) PostForm(ctx context.Context, link string, fields map[string]string) (Page, error) {
	f.requests = append(f.requests, request{Method: "POST", Url: link, Form: fields})
	return f.respond(link)
}

func (f *fakeFetcher) extractor() Extractor {
	return Extractor{
		NewFetcher: func() (Fetcher, error) {
			return f, nil
		},
	}
}

func htmlPage(body string) Page {
	return Page{Status: 200, Body: []byte(body)}
}
