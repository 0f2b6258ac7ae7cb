package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	// PrmAudio is a form file param of audio
	PrmAudio = "audio"
	// PrmMedia is a form file param of media, may repeat
	PrmMedia = "media"
	// PrmMediaURLs is a form param of kept media references, may repeat
	PrmMediaURLs = "mediaUrls"

	// MaxMediaSize is a max size of one media file
	MaxMediaSize = 50 * 1024 * 1024
	// MaxAudioSize is a max size of one audio upload
	MaxAudioSize = 200 * 1024 * 1024
)

// SessionFields are clinician editable session fields
type SessionFields struct {
	PatientName        string `json:"patientName" validate:"required"`
	PatientAge         string `json:"patientAge" validate:"required"`
	Summary            string `json:"summary"`
	FinalDiagnosis     string `json:"finalDiagnosis" validate:"required"`
	FinalPrescription  string `json:"finalPrescription" validate:"required"`
	ExaminationResults string `json:"examinationResults"`
	TreatmentPlan      string `json:"treatmentPlan"`
	DoctorNotes        string `json:"doctorNotes"`
	NotifyEmail        string `json:"notifyEmail" validate:"omitempty,email"`
	// MediaURLs are kept media references, nil - keep the current list
	MediaURLs []string `json:"mediaUrls"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	res := validator.New()
	res.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return res
}

// Validate trims text fields and checks the required ones
func (f *SessionFields) Validate() error {
	for _, p := range []*string{&f.PatientName, &f.PatientAge, &f.Summary, &f.FinalDiagnosis, &f.FinalPrescription,
		&f.ExaminationResults, &f.TreatmentPlan, &f.DoctorNotes, &f.NotifyEmail} {
		*p = strings.TrimSpace(*p)
	}
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		if vErrs[0].Tag() == "required" {
			return utils.NewErrField(vErrs[0].Field(), "missing")
		}
		return utils.NewErrField(vErrs[0].Field(), "wrong "+vErrs[0].Tag())
	}
	return fmt.Errorf("can't validate: %w", err)
}

// MediaFile is an uploaded media file
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// SessionRequest is a finalize or edit request, one of JSONRequest or MultipartRequest
type SessionRequest interface {
	Fields() *SessionFields
	Media() []*MediaFile
}

// JSONRequest carries fields only, media must be uploaded before
type JSONRequest struct {
	fields SessionFields
}

// Fields returns request fields
func (r *JSONRequest) Fields() *SessionFields { return &r.fields }

// Media returns no files
func (r *JSONRequest) Media() []*MediaFile { return nil }

// MultipartRequest carries fields and uploaded media files
type MultipartRequest struct {
	fields SessionFields
	media  []*MediaFile
}

// Fields returns request fields
func (r *MultipartRequest) Fields() *SessionFields { return &r.fields }

// Media returns uploaded files
func (r *MultipartRequest) Media() []*MediaFile { return r.media }

// ParseSessionRequest decides the request variant by content type and validates it
func ParseSessionRequest(c echo.Context) (SessionRequest, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	var res SessionRequest
	var err error
	switch {
	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		res, err = parseJSON(c)
	case strings.HasPrefix(ct, echo.MIMEMultipartForm):
		res, err = parseMultipart(c)
	default:
		return nil, utils.NewErrField("Content-Type", "expected json or multipart form")
	}
	if err != nil {
		return nil, err
	}
	if err := res.Fields().Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func parseJSON(c echo.Context) (*JSONRequest, error) {
	res := &JSONRequest{}
	if err := json.NewDecoder(c.Request().Body).Decode(&res.fields); err != nil {
		return nil, fmt.Errorf("%w: can't decode json: %v", utils.ErrValidation, err)
	}
	return res, nil
}

func parseMultipart(c echo.Context) (*MultipartRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: no multipart form data", utils.ErrValidation)
	}
	defer func() { _ = form.RemoveAll() }()
	res := &MultipartRequest{}
	f := &res.fields
	for k, p := range map[string]*string{"patientName": &f.PatientName, "patientAge": &f.PatientAge,
		"summary": &f.Summary, "finalDiagnosis": &f.FinalDiagnosis, "finalPrescription": &f.FinalPrescription,
		"examinationResults": &f.ExaminationResults, "treatmentPlan": &f.TreatmentPlan,
		"doctorNotes": &f.DoctorNotes, "notifyEmail": &f.NotifyEmail} {
		*p = takeFirst(form.Value[k])
	}
	if v, ok := form.Value[PrmMediaURLs]; ok {
		f.MediaURLs = nonEmpty(v)
	}
	res.media, err = ReadMedia(form.File[PrmMedia])
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReadMedia validates and reads uploaded media files, only images and videos are accepted
func ReadMedia(headers []*multipart.FileHeader) ([]*MediaFile, error) {
	res := make([]*MediaFile, 0, len(headers))
	for _, h := range headers {
		ct := h.Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "video/") {
			return nil, utils.NewErrField(PrmMedia, fmt.Sprintf("'%s' is not an image or video", h.Filename))
		}
		if h.Size > MaxMediaSize {
			return nil, utils.NewErrField(PrmMedia, fmt.Sprintf("'%s' exceeds 50MB", h.Filename))
		}
		name := utils.MakeValidateFileName(h.Filename)
		if name == "" {
			return nil, utils.NewErrField(PrmMedia, "no file name")
		}
		data, err := readFile(h, MaxMediaSize)
		if err != nil {
			return nil, err
		}
		res = append(res, &MediaFile{Name: name, ContentType: ct, Data: data})
	}
	return res, nil
}

// ReadAudio reads the audio form file
func ReadAudio(c echo.Context) (*MediaFile, error) {
	h, err := c.FormFile(PrmAudio)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, utils.NewErrField(PrmAudio, "missing")
		}
		return nil, fmt.Errorf("%w: can't read form: %v", utils.ErrValidation, err)
	}
	name := utils.MakeValidateFileName(h.Filename)
	ext := strings.ToLower(fileExt(name))
	if !utils.SupportAudioExt(ext) {
		return nil, utils.NewErrField(PrmAudio, "wrong file extension: "+ext)
	}
	data, err := readFile(h, MaxAudioSize)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, utils.NewErrField(PrmAudio, "empty")
	}
	ct := h.Header.Get(echo.HeaderContentType)
	if ct == "" || ct == echo.MIMEOctetStream {
		ct = AudioContentType(ext)
	}
	return &MediaFile{Name: name, ContentType: ct, Data: data}, nil
}

// AudioContentType returns content type by file extension
func AudioContentType(ext string) string {
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	}
	return echo.MIMEOctetStream
}

func readFile(h *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: can't open '%s': %v", utils.ErrValidation, h.Filename, err)
	}
	defer f.Close()
	res, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: can't read '%s': %v", utils.ErrValidation, h.Filename, err)
	}
	if int64(len(res)) > limit {
		return nil, utils.NewErrField(h.Filename, "file too large")
	}
	return res, nil
}

func fileExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func takeFirst(v []string) string {
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func nonEmpty(v []string) []string {
	res := make([]string, 0, len(v))
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}
