package workgroups_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/features/workgroups"
	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/store/memstore"
	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/mdregistry/internal/app/system/limits"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"github.com/dalemusser/mdregistry/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type harness struct {
	t      *testing.T
	db     *memstore.DB
	svc    *registry.Service
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memstore.New()
	svc := registry.New(registry.Deps{
		Tx:          db,
		Workgroups:  db.Workgroups(),
		Memberships: db.Memberships(),
		Items:       db.Items(),
		Users:       db.Users(),
		Audit:       auditlog.New(db.Audit(), zap.NewNop(), auditlog.Config{Admin: "db", Security: "db"}),
		Events:      db.Audit(),
		Logger:      zap.NewNop(),
		CountsTTL:   time.Minute,
	})
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "", "", time.Hour, false, zap.NewNop())
	require.NoError(t, err)

	root := chi.NewRouter()
	root.Mount("/workgroups", workgroups.Routes(workgroups.NewHandler(svc, 3, zap.NewNop()), sm))
	return &harness{t: t, db: db, svc: svc, router: root}
}

func (h *harness) user(name string, caps ...string) models.User {
	h.t.Helper()
	u, err := h.db.Users().Create(context.Background(), models.User{
		FullName:     name,
		Email:        primitive.NewObjectID().Hex() + "@example.com",
		Capabilities: caps,
	})
	require.NoError(h.t, err)
	return u
}

func (h *harness) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string, u models.User) *testutil.ResponseRecorder {
	return h.do(testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.FromModel(u)))
}

func (h *harness) post(target string, form url.Values, u models.User) *testutil.ResponseRecorder {
	return h.do(testutil.NewFormRequest(target, form, testutil.FromModel(u)))
}

func decode[T any](t *testing.T, rec *testutil.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type wgBody struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
}

func (h *harness) create(u models.User, name string) wgBody {
	h.t.Helper()
	rec := h.post("/workgroups", url.Values{"name": {name}}, u)
	rec.AssertStatus(h.t, http.StatusCreated)
	return decode[wgBody](h.t, rec)
}

func TestRoutes_RequireSignIn(t *testing.T) {
	h := newHarness(t)
	rec := h.do(testutil.NewRequest(http.MethodGet, "/workgroups"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

// Session users need no stored account: capabilities come from the session.
func TestRoutes_SessionCapabilities(t *testing.T) {
	h := newHarness(t)

	h.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/workgroups", testutil.PlainUser())).
		AssertStatus(t, http.StatusForbidden)
	h.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/workgroups", testutil.AdminUser())).
		AssertStatus(t, http.StatusOK)
	h.do(testutil.NewFormRequest("/workgroups", url.Values{"name": {"Vocabulary"}}, testutil.CreatorUser())).
		AssertStatus(t, http.StatusCreated)
}

func TestHandler_BadWorkgroupID(t *testing.T) {
	h := newHarness(t)
	handler := workgroups.NewHandler(h.svc, 3, zap.NewNop())

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/workgroups/nope/members", testutil.PlainUser())
	req = testutil.WithChiURLParam(req, "id", "nope")
	rec := testutil.NewRecorder()
	handler.ServeMembers(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestCreateAndOverview(t *testing.T) {
	h := newHarness(t)
	creator := h.user("Creator", models.CapAddWorkgroup)
	plain := h.user("Plain")

	h.post("/workgroups", url.Values{"name": {"X"}}, plain).AssertStatus(t, http.StatusForbidden)
	h.post("/workgroups", url.Values{"name": {""}}, creator).AssertStatus(t, http.StatusBadRequest)

	rec := h.post("/workgroups", url.Values{"name": {"Health Data Standards"}, "definition": {"Clinical"}}, creator)
	rec.AssertStatus(t, http.StatusCreated)
	wg := decode[wgBody](t, rec)
	require.Equal(t, "health-data-standards", wg.Slug)
	require.Equal(t, "/workgroups/"+wg.ID+"/health-data-standards", wg.URL)
	require.Equal(t, wg.URL, rec.Header().Get("Location"))

	rec = h.get(wg.URL, creator)
	rec.AssertStatus(t, http.StatusOK)
	ov := decode[struct {
		Workgroup wgBody   `json:"workgroup"`
		MyRoles   []string `json:"my_roles"`
	}](t, rec)
	require.Equal(t, []string{"manager"}, ov.MyRoles)

	// Truncated slugs are accepted.
	h.get("/workgroups/"+wg.ID+"/health-da", creator).AssertStatus(t, http.StatusOK)

	h.get("/workgroups/"+wg.ID, creator).AssertRedirect(t, wg.URL)
	h.get("/workgroups/"+wg.ID+"/wrong", creator).AssertRedirect(t, wg.URL)

	// Outsiders get 403 before any redirect.
	h.get("/workgroups/"+wg.ID, plain).AssertStatus(t, http.StatusForbidden)
	h.get("/workgroups/"+primitive.NewObjectID().Hex(), creator).AssertStatus(t, http.StatusNotFound)
	h.get("/workgroups/not-an-id", creator).AssertStatus(t, http.StatusBadRequest)
}

func TestList(t *testing.T) {
	h := newHarness(t)
	admin := h.user("Admin", models.CapRegistryAdmin)
	creator := h.user("Creator", models.CapAddWorkgroup)
	h.create(creator, "Alpha")
	h.create(creator, "Beta")

	h.get("/workgroups", creator).AssertStatus(t, http.StatusForbidden)

	rec := h.get("/workgroups?filter=+ALP+", admin)
	rec.AssertStatus(t, http.StatusOK)
	body := decode[struct {
		Filter     string   `json:"filter"`
		Workgroups []wgBody `json:"workgroups"`
	}](t, rec)
	require.Len(t, body.Workgroups, 1)
	require.Equal(t, "Alpha", body.Workgroups[0].Name)

	rec = h.get("/workgroups", admin)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"Beta"`)
}

func TestList_Paged(t *testing.T) {
	h := newHarness(t)
	admin := h.user("Admin", models.CapRegistryAdmin)
	for _, name := range []string{"Echo", "Alpha", "Delta", "Charlie", "Bravo"} {
		h.create(admin, name)
	}

	type listBody struct {
		Workgroups []wgBody `json:"workgroups"`
		Page       struct {
			Page     int   `json:"page"`
			PageSize int   `json:"page_size"`
			Total    int64 `json:"total"`
			HasNext  bool  `json:"has_next"`
		} `json:"page"`
		Range struct {
			Start int64 `json:"start"`
			End   int64 `json:"end"`
		} `json:"range"`
	}
	names := func(b listBody) []string {
		var out []string
		for _, wg := range b.Workgroups {
			out = append(out, wg.Name)
		}
		return out
	}

	// Handler default page size is 3.
	b := decode[listBody](t, h.get("/workgroups?page=junk", admin))
	require.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names(b))
	require.Equal(t, 3, b.Page.PageSize)
	require.EqualValues(t, 5, b.Page.Total)
	require.True(t, b.Page.HasNext)
	require.EqualValues(t, 1, b.Range.Start)
	require.EqualValues(t, 3, b.Range.End)

	b = decode[listBody](t, h.get("/workgroups?page=2&pp=2", admin))
	require.Equal(t, []string{"Charlie", "Delta"}, names(b))
	require.EqualValues(t, 3, b.Range.Start)
	require.EqualValues(t, 4, b.Range.End)

	b = decode[listBody](t, h.get("/workgroups?page=9223372036854775807&pp=9223372036854775807", admin))
	require.Empty(t, b.Workgroups)
	require.EqualValues(t, 5, b.Page.Total)
}

func TestDefinitionReturnedAsSubmitted(t *testing.T) {
	h := newHarness(t)
	admin := h.user("Admin", models.CapRegistryAdmin)

	rec := h.post("/workgroups", url.Values{
		"name":       {"Stats"},
		"definition": {"Births & deaths <2020<script>x</script>"},
	}, admin)
	rec.AssertStatus(t, http.StatusCreated)
	created := decode[struct {
		Definition     string `json:"definition"`
		DefinitionHTML string `json:"definition_html"`
	}](t, rec)
	require.Equal(t, "Births & deaths <2020<script>x</script>", created.Definition)
	require.NotContains(t, created.DefinitionHTML, "<script>")
	require.Contains(t, created.DefinitionHTML, "Births &amp; deaths")

	b := decode[struct {
		Workgroups []wgBody `json:"workgroups"`
	}](t, h.get("/workgroups?filter="+url.QueryEscape("births & deaths <2020"), admin))
	require.Len(t, b.Workgroups, 1)
	require.Equal(t, "Stats", b.Workgroups[0].Name)
}

func TestMembersFlow(t *testing.T) {
	h := newHarness(t)
	m := h.user("Manager", models.CapAddWorkgroup)
	a := h.user("Alice")
	b := h.user("Bob")
	wg := h.create(m, "W")
	base := "/workgroups/" + wg.ID

	h.post(base+"/members/add", url.Values{
		"user": {a.ID.Hex(), b.ID.Hex()},
		"role": {"viewer", "Steward"},
	}, m).AssertStatus(t, http.StatusNoContent)

	h.post(base+"/members/add", url.Values{"user": {a.ID.Hex()}, "role": {"overlord"}}, m).
		AssertStatus(t, http.StatusBadRequest)
	h.post(base+"/members/add", url.Values{"user": {"zzz"}, "role": {"viewer"}}, m).
		AssertStatus(t, http.StatusBadRequest)
	h.post(base+"/members/add", url.Values{"user": {b.ID.Hex()}, "role": {"manager"}}, a).
		AssertStatus(t, http.StatusForbidden)

	rec := h.get(base+"/members", a)
	rec.AssertStatus(t, http.StatusOK)
	body := decode[struct {
		Members []struct {
			Name       string   `json:"name"`
			Roles      []string `json:"roles"`
			RoleLabels []string `json:"role_labels"`
		} `json:"members"`
	}](t, rec)
	require.Len(t, body.Members, 3)
	require.Equal(t, "Alice", body.Members[0].Name)
	require.Equal(t, []string{"viewer", "steward"}, body.Members[0].Roles)
	require.Equal(t, []string{"Viewer", "Steward"}, body.Members[0].RoleLabels)

	h.post(base+"/members/roles", url.Values{"user": {a.ID.Hex()}, "role": {"submitter"}}, m).
		AssertStatus(t, http.StatusNoContent)
	held, err := h.svc.RolesOf(context.Background(), mustID(t, wg.ID), a.ID)
	require.NoError(t, err)
	require.True(t, held.Equal(roles.NewSet(roles.Submitter)))

	h.post(base+"/members/remove", url.Values{"user": {b.ID.Hex()}}, m).AssertStatus(t, http.StatusNoContent)
	h.post(base+"/members/remove", url.Values{}, m).AssertStatus(t, http.StatusBadRequest)

	h.post(base+"/leave", nil, a).AssertStatus(t, http.StatusNoContent)
	h.get(base+"/members", a).AssertStatus(t, http.StatusForbidden)
}

func TestUnknownRoleValuesRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.user("Manager", models.CapAddWorkgroup)
	a := h.user("Alice")
	c := h.user("Carol")
	wg := h.create(m, "W")
	wgID := mustID(t, wg.ID)
	base := "/workgroups/" + wg.ID

	h.post(base+"/members/add", url.Values{"user": {a.ID.Hex()}, "role": {"steward"}}, m).
		AssertStatus(t, http.StatusNoContent)

	// A mistyped role must not turn into an empty set and drop the member.
	rec := h.post(base+"/members/roles", url.Values{"user": {a.ID.Hex()}, "role": {"admin"}}, m)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "admin")
	held, err := h.svc.RolesOf(ctx, wgID, a.ID)
	require.NoError(t, err)
	require.True(t, held.Equal(roles.NewSet(roles.Steward)))

	h.post(base+"/members/roles", url.Values{"user": {a.ID.Hex()}, "role": {"viewer", "stewrd"}}, m).
		AssertStatus(t, http.StatusBadRequest)
	held, err = h.svc.RolesOf(ctx, wgID, a.ID)
	require.NoError(t, err)
	require.True(t, held.Equal(roles.NewSet(roles.Steward)))

	// One bad value fails the whole add.
	h.post(base+"/members/add", url.Values{"user": {c.ID.Hex()}, "role": {"viewer", "overlord"}}, m).
		AssertStatus(t, http.StatusBadRequest)
	held, err = h.svc.RolesOf(ctx, wgID, c.ID)
	require.NoError(t, err)
	require.True(t, held.Empty())

	// Posting no roles at all still means remove.
	h.post(base+"/members/roles", url.Values{"user": {a.ID.Hex()}}, m).
		AssertStatus(t, http.StatusNoContent)
	held, err = h.svc.RolesOf(ctx, wgID, a.ID)
	require.NoError(t, err)
	require.True(t, held.Empty())
}

func TestArchiveBlocksMemberChanges(t *testing.T) {
	h := newHarness(t)
	m := h.user("Manager", models.CapAddWorkgroup)
	c := h.user("Carol")
	wg := h.create(m, "W")
	base := "/workgroups/" + wg.ID

	rec := h.post(base+"/archive", nil, m)
	rec.AssertStatus(t, http.StatusOK)
	require.True(t, decode[wgBody](t, rec).Archived)

	h.post(base+"/members/add", url.Values{"user": {c.ID.Hex()}, "role": {"viewer"}}, m).
		AssertStatus(t, http.StatusConflict)

	// Editing still works while archived.
	rec = h.post(base+"/edit", url.Values{"name": {"Renamed"}}, m)
	rec.AssertStatus(t, http.StatusOK)
	require.Equal(t, "Renamed", decode[wgBody](t, rec).Name)

	rec = h.post(base+"/archive", nil, m)
	rec.AssertStatus(t, http.StatusOK)
	require.False(t, decode[wgBody](t, rec).Archived)

	h.post(base+"/members/add", url.Values{"user": {c.ID.Hex()}, "role": {"viewer"}}, m).
		AssertStatus(t, http.StatusNoContent)
}

func TestItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.user("Manager", models.CapAddWorkgroup)
	wg := h.create(m, "W")
	wgID := mustID(t, wg.ID)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"delta", "alpha", "charlie", "bravo"} {
		id := wgID
		_, err := h.db.Items().Create(ctx, models.MetadataItem{
			Name: name, Status: "draft", WorkgroupID: &id,
			Modified: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	type itemsBody struct {
		Sort  string `json:"sort"`
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Page struct {
			Page     int   `json:"page"`
			PageSize int   `json:"page_size"`
			Total    int64 `json:"total"`
		} `json:"page"`
	}
	names := func(b itemsBody) []string {
		var out []string
		for _, it := range b.Items {
			out = append(out, it.Name)
		}
		return out
	}

	// Handler default page size is 3; junk values fall back quietly.
	rec := h.get("/workgroups/"+wg.ID+"/items?sort=nope&pp=abc&page=-4", m)
	rec.AssertStatus(t, http.StatusOK)
	body := decode[itemsBody](t, rec)
	require.Equal(t, "mod_desc", body.Sort)
	require.Equal(t, 3, body.Page.PageSize)
	require.Equal(t, 1, body.Page.Page)
	require.EqualValues(t, 4, body.Page.Total)
	require.Equal(t, []string{"bravo", "charlie", "alpha"}, names(body))

	rec = h.get("/workgroups/"+wg.ID+"/items?sort=name_asc&pp=2&page=2", m)
	rec.AssertStatus(t, http.StatusOK)
	require.Equal(t, []string{"charlie", "delta"}, names(decode[itemsBody](t, rec)))

	loose, err := h.db.Items().Create(ctx, models.MetadataItem{Name: "echo", Status: "draft"})
	require.NoError(t, err)
	h.post("/workgroups/"+wg.ID+"/items/assign", url.Values{"item": {"bad"}}, m).AssertStatus(t, http.StatusBadRequest)
	h.post("/workgroups/"+wg.ID+"/items/assign", url.Values{"item": {loose.ID.Hex()}}, m).AssertStatus(t, http.StatusNoContent)
	got, err := h.db.Items().GetByID(ctx, loose.ID)
	require.NoError(t, err)
	require.Equal(t, wgID, *got.WorkgroupID)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	m := h.user("Manager", models.CapAddWorkgroup)
	v := h.user("Vera")
	wg := h.create(m, "W")
	base := "/workgroups/" + wg.ID

	h.post(base+"/members/add", url.Values{"user": {v.ID.Hex()}, "role": {"viewer"}}, m).
		AssertStatus(t, http.StatusNoContent)
	h.get(base+"/history", v).AssertStatus(t, http.StatusForbidden)

	type historyBody struct {
		Events []struct {
			EventType string `json:"event_type"`
			ActorName string `json:"actor_name"`
			UserName  string `json:"user_name"`
		} `json:"events"`
		Page struct {
			Total int64 `json:"total"`
		} `json:"page"`
	}

	rec := h.get(base+"/history?category=admin", m)
	rec.AssertStatus(t, http.StatusOK)
	body := decode[historyBody](t, rec)
	require.Len(t, body.Events, 2)
	require.Equal(t, "member_roles_added", body.Events[0].EventType)
	require.Equal(t, "Manager", body.Events[0].ActorName)
	require.Equal(t, "Vera", body.Events[0].UserName)
	require.Equal(t, "workgroup_created", body.Events[1].EventType)

	// Vera's refusal shows up under the security category.
	rec = h.get(base+"/history?category=security", m)
	rec.AssertStatus(t, http.StatusOK)
	body = decode[historyBody](t, rec)
	require.Len(t, body.Events, 1)
	require.Equal(t, "permission_denied", body.Events[0].EventType)

	// A window that ends before today holds nothing.
	rec = h.get(base+"/history?end_date=2000-01-01&start_date=bogus", m)
	rec.AssertStatus(t, http.StatusOK)
	require.Empty(t, decode[historyBody](t, rec).Events)
}

func TestOversizedFormRejected(t *testing.T) {
	h := newHarness(t)
	m := h.user("Manager", models.CapAddWorkgroup)
	wg := h.create(m, "W")

	big := strings.Repeat("x", limits.MaxFormSize+1)
	h.post("/workgroups/"+wg.ID+"/edit", url.Values{"name": {"W"}, "definition": {big}}, m).
		AssertStatus(t, http.StatusRequestEntityTooLarge)
}

func mustID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
