package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/pages"
)

// share handles the OS share sheet target. A shared url or text is saved
// right away; action=add only asks the app to open the add dialog. Either
// way the client is sent back to the app with the query stripped.
func share(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		shared := strings.TrimSpace(q.Get("url"))
		if shared == "" {
			shared = strings.TrimSpace(q.Get("text"))
		}

		location := "/"
		if q.Get("action") == "add" {
			location = "/#add"
		}

		if shared != "" {
			_, err := d.Pages.Save(r.Context(), pages.SaveInput{Text: shared, Title: q.Get("title")})
			if err != nil && !errors.Is(err, pages.ErrDuplicate) {
				applog.Error("share.save", err, "text", shared)
			}
			w.Header().Set(NoticeHeader, pages.Notice(err))
		}
		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}
