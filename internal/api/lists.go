package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"geoloc/internal/format"
	"geoloc/internal/shopping"
)

// listBody：清单及汇总信息
type listBody struct {
	shopping.List
	Remaining int    `json:"remaining"`
	Total     string `json:"total"`
}

func newListBody(l shopping.List) listBody {
	if l.Items == nil {
		l.Items = []shopping.Item{}
	}
	return listBody{List: l, Remaining: l.Remaining(), Total: format.Price(l.Total())}
}

type listInput struct {
	Name  string          `json:"name"`
	Items []shopping.Item `json:"items"`
}

func decodeList(w http.ResponseWriter, r *http.Request) (listInput, bool) {
	var in listInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return in, false
	}
	if err := (&shopping.List{Items: in.Items}).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

// listError：不存在 → 404，其它 → 500
func listError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shopping.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	internalError(w, r, err)
}

func (d Deps) allLists(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	ls, err := d.Lists.All(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	out := make([]listBody, 0, len(ls))
	for _, l := range ls {
		out = append(out, newListBody(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (d Deps) createList(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	in, ok := decodeList(w, r)
	if !ok {
		return
	}
	l, err := d.Lists.Create(r.Context(), in.Name, in.Items)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newListBody(l))
}

func (d Deps) getList(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	l, err := d.Lists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		listError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(l))
}

// saveList：整体替换名称与条目
func (d Deps) saveList(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	in, ok := decodeList(w, r)
	if !ok {
		return
	}
	l, err := d.Lists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		listError(w, r, err)
		return
	}
	l.Name = in.Name
	l.Items = in.Items
	if err := d.Lists.Save(r.Context(), &l); err != nil {
		listError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(l))
}

func (d Deps) deleteList(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	if err := d.Lists.Delete(r.Context(), r.PathValue("id")); err != nil {
		listError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d Deps) toggleItem(w http.ResponseWriter, r *http.Request) {
	if d.Lists == nil {
		unavailable(w, "shopping lists")
		return
	}
	l, err := d.Lists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		listError(w, r, err)
		return
	}
	if !l.Toggle(r.PathValue("productId")) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err := d.Lists.Save(r.Context(), &l); err != nil {
		listError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(l))
}
