package server

import (
	"html/template"
	"net/http"
)

var registerFormTmpl = template.Must(template.New("register-form").Parse(`<!doctype html>
<html><head><title>Register — One Page Pub</title></head>
<body>
<h1>Register</h1>
<form method="POST" action="/register">
  <label>Username <input type="text" name="username" pattern="[A-Za-z0-9_]{1,32}" required></label><br>
  <label>Password <input type="password" name="password" required></label><br>
  <label>Confirm <input type="password" name="confirmation" required></label><br>
  <button type="submit">Register</button>
</form>
</body></html>`))

var registerDoneTmpl = template.Must(template.New("register-done").Parse(`<!doctype html>
<html><head><title>Registered — One Page Pub</title></head>
<body>
<h1>Welcome, {{.Username}}</h1>
<p>Your actor: <a href="{{.ActorID}}">{{.ActorID}}</a></p>
<p>Your bearer token (shown once, store it now):</p>
<p><span class="token">{{.Token}}</span></p>
</body></html>`))

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	registerFormTmpl.Execute(w, nil)
}

func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErr(w, err)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	confirmation := r.FormValue("confirmation")

	reg, err := s.actors.Register(username, password, confirmation)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	registerDoneTmpl.Execute(w, map[string]string{
		"Username": username,
		"ActorID":  reg.ActorID,
		"Token":    reg.Token,
	})
}
