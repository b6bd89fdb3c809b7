package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"liked": func(liked map[uint]bool, id uint) bool {
			return liked[id]
		},
		"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
			if len(pairs)%2 != 0 {
				return nil, errors.New("dict needs key/value pairs")
			}
			m := make(map[string]interface{}, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, errors.New("dict keys must be strings")
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Pages renders templates with the current user and pending flashes.
type Pages struct {
	sessions *middleware.SessionManager
}

func NewPages(sessions *middleware.SessionManager) *Pages {
	return &Pages{sessions: sessions}
}

func (p *Pages) Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrUser"] = middleware.CurrentUser(c)
	data["Flashes"] = p.sessions.Flashes(c)
	c.HTML(status, name, data)
}

func (p *Pages) Flash(c *gin.Context, category, message string) {
	p.sessions.AddFlash(c, category, message)
}

func (p *Pages) NotFound(c *gin.Context) {
	p.Render(c, http.StatusNotFound, "404.html", nil)
}

func (p *Pages) Error(c *gin.Context) {
	p.Render(c, http.StatusInternalServerError, "500.html", nil)
}

// paramID parses a numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func userPath(id uint, suffix string) string {
	return "/users/" + strconv.FormatUint(uint64(id), 10) + suffix
}
