// Package render makes the printable consultation document
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"text/template"
)

// Document keeps fields rendered into the consultation document
type Document struct {
	PatientName        string
	PatientAge         string
	Date               string
	Summary            string
	ExaminationResults string
	Diagnosis          string
	Prescription       string
	TreatmentPlan      string
	DoctorNotes        string
	Media              []string
}

// MediaKind is a gallery item kind
type MediaKind int

const (
	// Link - rendered as a labeled link
	Link MediaKind = iota
	// Image - rendered inline
	Image
	// Video - rendered with a player
	Video
)

var (
	imageRegexp = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|webp)$`)
	videoRegexp = regexp.MustCompile(`(?i)\.(mp4|mov|avi|mkv|webm)$`)
)

// Classify detects media kind by the file extension of the reference
func Classify(ref string) MediaKind {
	p := refPath(ref)
	switch {
	case imageRegexp.MatchString(p):
		return Image
	case videoRegexp.MatchString(p):
		return Video
	}
	return Link
}

// FileName returns the last path segment of the reference
func FileName(ref string) string {
	p := refPath(ref)
	if p == "" {
		return ref
	}
	return path.Base(p)
}

func refPath(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		return u.Path
	}
	return ref
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#039;")

// Escape escapes html special chars, newlines become <br>
func Escape(s string) string {
	return strings.ReplaceAll(escaper.Replace(s), "\n", "<br>")
}

func escapeAttr(s string) string {
	return escaper.Replace(s)
}

type mediaItem struct {
	Kind MediaKind
	URL  string
	Name string
}

var tmpl = template.Must(template.New("document").Funcs(template.FuncMap{"esc": Escape, "attr": escapeAttr}).
	Parse(documentTemplate))

// Render makes the html document, output depends only on the input
func Render(doc *Document) ([]byte, error) {
	data := struct {
		*Document
		Items []mediaItem
		Image MediaKind
		Video MediaKind
	}{Document: doc, Image: Image, Video: Video}
	for _, m := range doc.Media {
		data.Items = append(data.Items, mediaItem{Kind: Classify(m), URL: m, Name: FileName(m)})
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("can't render document: %w", err)
	}
	return b.Bytes(), nil
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Medical Consultation Document - {{esc .PatientName}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 20px; }
.header { text-align: center; margin-bottom: 30px; }
.section { margin-bottom: 20px; }
.section-title { font-weight: bold; margin-bottom: 5px; }
.media-gallery { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 15px; }
.media-item { border: 1px solid #ddd; padding: 10px; border-radius: 5px; }
.media-item img, .media-item video { max-width: 100%; height: auto; }
.media-caption { font-size: 0.8em; color: #666; margin-top: 5px; word-break: break-all; }
@media print { .no-print { display: none; } }
</style>
</head>
<body>
<div class="header">
<h1>MEDICAL CONSULTATION DOCUMENT</h1>
<p>Date: {{esc .Date}}</p>
</div>
<div class="section">
<p><strong>Patient Name:</strong> {{esc .PatientName}}</p>
<p><strong>Patient Age:</strong> {{esc .PatientAge}}</p>
</div>
<div class="section">
<div class="section-title">Patient Complaint &amp; Medical History</div>
<div>{{esc .Summary}}</div>
</div>
{{- if .ExaminationResults}}
<div class="section">
<div class="section-title">Examination Results</div>
<div>{{esc .ExaminationResults}}</div>
</div>
{{- end}}
<div class="section">
<div class="section-title">Diagnosis</div>
<div>{{esc .Diagnosis}}</div>
</div>
<div class="section">
<div class="section-title">Management</div>
<div>{{esc .Prescription}}</div>
</div>
{{- if .TreatmentPlan}}
<div class="section">
<div class="section-title">Plan</div>
<div>{{esc .TreatmentPlan}}</div>
</div>
{{- end}}
{{- if .DoctorNotes}}
<div class="section">
<div class="section-title">Additional Notes</div>
<div>{{esc .DoctorNotes}}</div>
</div>
{{- end}}
{{- if .Items}}
<div class="section">
<div class="section-title">Medical Images &amp; Videos</div>
<div class="media-gallery">
{{- range .Items}}
<div class="media-item">
{{- if eq .Kind $.Image}}
<img src="{{attr .URL}}" alt="{{attr .Name}}">
{{- else if eq .Kind $.Video}}
<video controls><source src="{{attr .URL}}" type="video/mp4">Your browser does not support the video tag.</video>
{{- else}}
<a href="{{attr .URL}}" target="_blank">{{esc .Name}}</a>
{{- end}}
<div class="media-caption">{{esc .Name}}</div>
</div>
{{- end}}
</div>
</div>
{{- end}}
<div class="no-print" style="margin-top: 30px; text-align: center;">
<button onclick="window.print()">Print Document</button>
</div>
</body>
</html>
`
