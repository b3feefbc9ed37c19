package types

import (
	"encoding/json"
	"strings"
	"testing"

	"paydesk/pkg/guard"
	"paydesk/pkg/models"
	"paydesk/pkg/router"
)

func TestConvertSession(t *testing.T) {
	s := models.Session{
		Token:           "secret-token",
		IsAuthenticated: true,
		Profile:         models.Profile{FirstName: "ada", LastName: "Lovelace", Email: "ada@example.com"},
		Accounts: []models.BankAccount{
			{ID: "ba_1", AccountNumber: "DE89 3704 0044 0532 0130 00"},
			{ID: "ba_2", AccountNumber: "1234", IsDefault: true},
		},
	}

	view := ConvertSession(s)
	if view.DisplayName != "ada Lovelace" || view.Initials != "AL" {
		t.Errorf("name fields = %q %q", view.DisplayName, view.Initials)
	}
	if view.DefaultAccountID != "ba_2" {
		t.Errorf("DefaultAccountID = %q", view.DefaultAccountID)
	}
	if got := view.Accounts[0].AccountNumber; !strings.HasSuffix(got, "3000") || strings.Contains(got, "3704") {
		t.Errorf("account number not masked: %q", got)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret-token") {
		t.Fatal("token serialized into the session view")
	}
}

func TestConvertSessionEmpty(t *testing.T) {
	view := ConvertSession(models.Session{})
	if view.IsAuthenticated || view.Accounts == nil || len(view.Accounts) != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestConvertResolution(t *testing.T) {
	rt, err := router.New(router.DefaultRoutes(), guard.New(""))
	if err != nil {
		t.Fatal(err)
	}
	signedIn := models.Session{Token: "t", IsAuthenticated: true}

	tests := []struct {
		name    string
		path    string
		session models.Session
		want    NavigationView
	}{
		{
			name:    "allowed with params",
			path:    "/invoices/inv_1",
			session: signedIn,
			want:    NavigationView{Path: "/invoices/inv_1", View: router.ViewInvoice, Allowed: true, Params: map[string]string{"id": "inv_1"}},
		},
		{
			name: "redirected",
			path: "/profile",
			want: NavigationView{Path: "/profile", Redirect: "/login"},
		},
		{
			name: "unknown",
			path: "/nowhere",
			want: NavigationView{Path: "/nowhere", View: router.ViewNotFound, Allowed: true, NotFound: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertResolution(tt.path, rt.Resolve(tt.path, tt.session))
			if got.Path != tt.want.Path || got.View != tt.want.View || got.Allowed != tt.want.Allowed ||
				got.Redirect != tt.want.Redirect || got.NotFound != tt.want.NotFound || got.Params["id"] != tt.want.Params["id"] {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
