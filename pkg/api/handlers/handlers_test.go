package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	apierrors "github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/template"
)

func init() {
	apierrors.SetLogger(logger.Discard())
}

func testCatalog() *template.MemoryCatalog {
	return template.NewMemoryCatalog(
		template.Template{ID: "tpl-welcome", Name: "Boas-vindas", Content: "Oi!", Type: template.TypeText},
		template.Template{ID: "tpl-offer", Name: "Oferta", Content: "Só hoje", Type: template.TypeText},
	)
}

func setupFunnelService(t *testing.T) *funnel.Service {
	t.Helper()
	return funnelServiceWith(testCatalog())
}

func funnelServiceWith(catalog template.Catalog) *funnel.Service {
	return funnel.NewService(funnel.NewMemoryRepository(), catalog, logger.Discard(), nil)
}

// newRequest builds an echo context for method/path with an optional JSON body
// and path params given as name, value pairs.
func newRequest(method, path, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createFunnel(t *testing.T, svc *funnel.Service) *funnel.Funnel {
	t.Helper()
	f, err := svc.Create(context.Background(), funnel.Funnel{
		Name:        "Captação",
		Description: "Leads do Instagram",
		IsActive:    true,
		Steps: []funnel.Step{
			{TemplateID: "tpl-welcome", Delay: 30, Condition: funnel.ConditionNone},
			{TemplateID: "tpl-offer", Condition: funnel.ConditionResponse},
		},
	})
	require.NoError(t, err)
	return f
}
