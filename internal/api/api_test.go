package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/schema"
	"github.com/starford/vitrine/internal/store"
	"github.com/starford/vitrine/internal/testutil"
	"github.com/starford/vitrine/internal/users"
)

// testEnv builds a router over a seeded in-memory catalog.
// authToken="" means disabled mode.
func testEnv(t *testing.T, authToken string) (*store.Store, http.Handler) {
	t.Helper()
	s, _ := testutil.NewStore(t)
	testutil.SeedCatalog(t, s)

	reg := registry.New(s)
	comp := schema.New(s, reg)
	usr := users.New(s, testutil.Logger())
	if err := usr.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}

	enabled := authToken != ""
	router := NewRouter(s, reg, comp, usr, enabled, authToken, nil)
	return s, router
}

func mustCollection(id, name string) models.Collection {
	return models.Collection{ID: id, Name: name}
}

func userWithAccess(username string, collectionIDs ...string) models.User {
	return models.User{
		Username:             username,
		Role:                 models.RoleUser,
		AllowedCollectionIDs: collectionIDs,
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "sekrit")

	w := doJSON(t, router, http.MethodGet, "/collections", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with token: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateCollectionProvisionsNameField(t *testing.T) {
	s, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/collections", map[string]string{"name": "Libros"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("no id assigned")
	}

	found := false
	for _, def := range s.FieldDefinitions() {
		if def.CollectionID == created.ID && def.Key == "nombre" {
			found = true
		}
	}
	if !found {
		t.Error("new collection must get its own scoped name field")
	}
}

func TestDeleteCollectionCascades(t *testing.T) {
	s, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodDelete, "/collections/"+testutil.CollectionID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(s.Items()) != 0 || len(s.Sections()) != 0 {
		t.Error("cascade incomplete")
	}
}

func TestCreateSectionReturnsDefaultType(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/sections", map[string]string{
		"collectionId": testutil.CollectionID,
		"name":         "Portátiles",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Section struct {
			ID string `json:"id"`
		} `json:"section"`
		DefaultType struct {
			Name      string `json:"name"`
			SectionID string `json:"sectionId"`
		} `json:"defaultType"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.DefaultType.Name != "Portátiles" || resp.DefaultType.SectionID != resp.Section.ID {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReorderSections(t *testing.T) {
	s, router := testEnv(t, "")
	_ = s.SaveSection(models.Section{ID: "sec_pc", CollectionID: testutil.CollectionID, Name: "PC"})

	w := doJSON(t, router, http.MethodPut, "/collections/"+testutil.CollectionID+"/sections/order",
		map[string]any{"ids": []string{"sec_pc", testutil.SectionID}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := s.SectionsByCollection(testutil.CollectionID)
	if len(got) != 2 || got[0].ID != "sec_pc" || got[1].ID != testutil.SectionID {
		t.Errorf("order = %+v", got)
	}

	// A partial id list is rejected and nothing moves.
	w = doJSON(t, router, http.MethodPut, "/collections/"+testutil.CollectionID+"/sections/order",
		map[string]any{"ids": []string{"sec_pc"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("partial list: status = %d", w.Code)
	}
}

func TestDeleteTypeNeedsStrategy(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodDelete, "/types/"+testutil.TypeID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("no strategy: status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/types/"+testutil.TypeID+"?strategy=cascade", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("cascade: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSaveFieldConflictExposesExisting(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/fields", map[string]any{"label": "género", "type": "text"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Existing struct {
			ID string `json:"id"`
		} `json:"existing"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Existing.ID != testutil.GenreFieldID {
		t.Errorf("existing = %q", resp.Existing.ID)
	}
}

func TestSaveItemEnforcesMandatory(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/items", map[string]any{
		"typeId": testutil.TypeID,
		"data":   map[string]any{"genero": "RPG"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/items", map[string]any{
		"typeId": testutil.TypeID,
		"data":   map[string]any{"nombre": "Hollow Knight", "genero": "Aventura"},
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestQueryItemsFacetsAndFilters(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/sections/"+testutil.SectionID+"/query", map[string]any{
		"filters": map[string][]string{testutil.GenreFieldID: {"RPG"}},
		"page":    1,
		"perPage": 20,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Facets []struct {
			FieldID string `json:"fieldId"`
			Buckets []struct {
				Value string `json:"value"`
				Count int    `json:"count"`
			} `json:"buckets"`
		} `json:"facets"`
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Total != 2 {
		t.Errorf("filtered total = %d, want 2 RPG items", resp.Total)
	}
	if len(resp.Facets) != 1 || resp.Facets[0].FieldID != testutil.GenreFieldID {
		t.Fatalf("facets = %+v", resp.Facets)
	}
	// Facets reflect the scoped items before filtering.
	counts := map[string]int{}
	for _, b := range resp.Facets[0].Buckets {
		counts[b.Value] = b.Count
	}
	if counts["RPG"] != 2 || counts["Aventura"] != 1 {
		t.Errorf("buckets = %v", counts)
	}
}

func TestImportPlanAndExecute(t *testing.T) {
	s, router := testEnv(t, "")

	csv := "nombre;genero\nChrono Trigger;JRPG\nMario Kart;Carreras\n"
	w := doJSON(t, router, http.MethodPost, "/import/plan", map[string]any{
		"csv":    csv,
		"typeId": testutil.TypeID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("plan status = %d, body = %s", w.Code, w.Body.String())
	}
	var plan struct {
		Duplicates int `json:"duplicates"`
		RowCount   int `json:"rowCount"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &plan)
	if plan.Duplicates != 1 || plan.RowCount != 2 {
		t.Errorf("plan = %+v", plan)
	}

	w = doJSON(t, router, http.MethodPost, "/import/execute", map[string]any{
		"csv":      csv,
		"typeId":   testutil.TypeID,
		"strategy": "keep-both",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("execute status = %d, body = %s", w.Code, w.Body.String())
	}
	var res struct {
		Created int `json:"created"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Created != 2 {
		t.Errorf("created = %d", res.Created)
	}
	if len(s.ItemsByType(testutil.TypeID)) != 5 {
		t.Errorf("items = %d, want 5", len(s.ItemsByType(testutil.TypeID)))
	}
}

func TestLoginAndCollectionVisibility(t *testing.T) {
	s, router := testEnv(t, "")
	_ = s.SaveCollection(mustCollection("col_privada", "Privada"))

	w := doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"username": "admin", "password": "admin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		User struct {
			Role     string `json:"role"`
			Password string `json:"password"`
		} `json:"user"`
		Collections []struct {
			ID string `json:"id"`
		} `json:"collections"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.User.Role != "admin" {
		t.Errorf("role = %q", resp.User.Role)
	}
	if resp.User.Password != "" {
		t.Error("password hash leaked in login response")
	}
	if len(resp.Collections) != 2 {
		t.Errorf("admin sees %d collections, want 2", len(resp.Collections))
	}

	w = doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"username": "admin", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status = %d", w.Code)
	}
}

func TestRestrictedUserSeesAllowedCollectionsOnly(t *testing.T) {
	s, router := testEnv(t, "")
	_ = s.SaveCollection(mustCollection("col_privada", "Privada"))

	usr := users.New(s, testutil.Logger())
	if _, err := usr.Save(userWithAccess("ana", testutil.CollectionID), "clave"); err != nil {
		t.Fatalf("save user: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"username": "ana", "password": "clave",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Collections []struct {
			ID string `json:"id"`
		} `json:"collections"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Collections) != 1 || resp.Collections[0].ID != testutil.CollectionID {
		t.Errorf("collections = %+v", resp.Collections)
	}
}

func TestSnapshotRoundtripOverHTTP(t *testing.T) {
	s, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	snapshot := w.Body.Bytes()

	// Wipe the catalog, then restore.
	if err := s.DeleteCollection(testutil.CollectionID); err != nil {
		t.Fatalf("wipe: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/snapshot", bytes.NewReader(snapshot))
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("restore status = %d, body = %s", rw.Code, rw.Body.String())
	}
	if len(s.Items()) != 3 {
		t.Errorf("items = %d after restore", len(s.Items()))
	}
}
