package server

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go.yhsif.com/img2gray"
	"go.yhsif.com/img2gray/media"
	"go.yhsif.com/img2gray/session"
)

const (
	pageTitle = "Image to Grayscale"

	// Seconds between reloads while a conversion is in flight.
	refreshSeconds = 1

	// Only the CSS class names matter, styling is left to the browser.
	classPreview  = "preview"
	classSkeleton = "preview skeleton"
	classError    = "preview error"
)

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{
			Key: attrs[i],
			Val: attrs[i+1],
		})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{
		Type: html.TextNode,
		Data: s,
	}
}

func appendChildren(parent *html.Node, children ...*html.Node) *html.Node {
	for _, child := range children {
		parent.AppendChild(child)
	}
	return parent
}

func withText(n *html.Node, s string) *html.Node {
	return appendChildren(n, text(s))
}

// renderPage writes the full page for snap.
func renderPage(w io.Writer, snap session.Snapshot) error {
	head := appendChildren(
		element(atom.Head),
		element(atom.Meta, "charset", "utf-8"),
		element(atom.Meta, "name", "viewport", "content", "width=device-width, initial-scale=1"),
		withText(element(atom.Title), pageTitle),
	)
	if snap.State.Busy() {
		head.AppendChild(element(
			atom.Meta,
			"http-equiv", "refresh",
			"content", strconv.Itoa(refreshSeconds),
		))
	}

	body := appendChildren(
		element(atom.Body),
		withText(element(atom.H1), pageTitle),
		uploadForm(),
		previewSection(snap),
		downloadSection(snap),
		resetForm(),
		mediaSection(),
	)

	doc := appendChildren(
		&html.Node{Type: html.DocumentNode},
		&html.Node{Type: html.DoctypeNode, Data: "html"},
		appendChildren(element(atom.Html, "lang", "en"), head, body),
	)
	return html.Render(w, doc)
}

func uploadForm() *html.Node {
	return appendChildren(
		element(
			atom.Form,
			"method", "post",
			"action", "/convert",
			"enctype", "multipart/form-data",
		),
		element(
			atom.Input,
			"type", "file",
			"name", formFieldImage,
			"accept", "image/*",
			"required", "",
		),
		withText(element(atom.Button, "type", "submit"), "Convert"),
	)
}

func previewSection(snap session.Snapshot) *html.Node {
	switch snap.State {
	default:
		return withText(
			element(atom.Div, "class", classPreview),
			"Upload an image to convert it to grayscale.",
		)

	case session.StateDecoding, session.StateTransforming:
		return withText(
			element(atom.Div, "class", classSkeleton, "data-state", snap.State.String()),
			fmt.Sprintf("Converting %s…", snap.Filename),
		)

	case session.StateError:
		return withText(
			element(atom.Div, "class", classError, "role", "alert"),
			fmt.Sprintf("Unable to convert %s: %v", snap.Filename, snap.Err),
		)

	case session.StateReady:
		art := snap.Artifact
		div := appendChildren(
			element(atom.Div, "class", classPreview),
			element(
				atom.Img,
				"src", art.DataURI(),
				"alt", art.Filename,
				"data-width", strconv.Itoa(art.Width),
				"data-height", strconv.Itoa(art.Height),
			),
		)
		if ref := art.Ref(); ref != nil {
			div.AppendChild(withText(
				element(atom.A, "href", "/ref/"+ref.ID(), "target", "_blank"),
				"Open full size",
			))
		}
		return div
	}
}

// downloadSection returns an enabled download link only when there's an
// artifact.
func downloadSection(snap session.Snapshot) *html.Node {
	if snap.State != session.StateReady || snap.Artifact == nil {
		return withText(element(atom.Button, "type", "button", "disabled", ""), "Download")
	}
	art := snap.Artifact
	return withText(
		element(atom.A, "href", downloadPath(art), "download", art.Filename),
		"Download "+art.Filename,
	)
}

func downloadPath(art *img2gray.Artifact) string {
	return "/download/" + art.ID
}

func resetForm() *html.Node {
	return appendChildren(
		element(atom.Form, "method", "post", "action", "/reset"),
		withText(element(atom.Button, "type", "submit"), "Reset"),
	)
}

func mediaSection() *html.Node {
	sel := element(atom.Select, "name", queryPlatform)
	for _, p := range media.AllPlatforms {
		sel.AppendChild(withText(element(atom.Option, "value", p.String()), p.Title()))
	}
	return appendChildren(
		element(atom.Form, "method", "get", "action", "/api/media"),
		withText(element(atom.H2), "Video downloaders (demo)"),
		sel,
		element(atom.Input, "type", "url", "name", queryURL, "placeholder", "Paste video URL here..."),
		withText(element(atom.Button, "type", "submit"), "Find Video"),
	)
}
