package mid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ardanlabs/blockminer/business/web/mid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCors(t *testing.T) {
	type table struct {
		name    string
		origins []string
		origin  string
		exp     string
	}

	tt := []table{
		{name: "default allows all", origin: "http://viewer.local", exp: "*"},
		{name: "wildcard", origins: []string{"*"}, origin: "http://viewer.local", exp: "*"},
		{name: "listed origin", origins: []string{"http://viewer.local"}, origin: "http://viewer.local", exp: "http://viewer.local"},
		{name: "unlisted origin", origins: []string{"http://viewer.local"}, origin: "http://other.local", exp: ""},
	}

	t.Log("Given the need to control which origins can call the api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					var called bool
					next := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						called = true
						return nil
					}

					h := mid.Cors(tst.origins...)(next)

					r := httptest.NewRequest(http.MethodGet, "/v1/genesis", nil)
					r.Header.Set("Origin", tst.origin)
					w := httptest.NewRecorder()

					if err := h(context.Background(), w, r); err != nil || !called {
						t.Fatalf("\t%s\tTest %d:\tShould call the next handler: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould call the next handler.", success, testID)

					if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.exp {
						t.Fatalf("\t%s\tTest %d:\tShould allow origin %q, got %q.", failed, testID, tst.exp, got)
					}
					t.Logf("\t%s\tTest %d:\tShould allow origin %q.", success, testID, tst.exp)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
