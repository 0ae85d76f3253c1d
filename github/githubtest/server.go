// Package githubtest provides an in-memory stand-in for the parts of the
// GitHub REST and OAuth APIs the backend uses.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"sitewise-backend/github"
)

type File struct {
	Content []byte
	SHA     string
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	files     map[string]File
	large     map[string]bool
	repos     map[string]github.Repository
	users     map[string]github.User
	userRepos map[string][]github.Repository
	codes     map[string]string
	requests  []string
}

func NewServer() *Server {
	s := &Server{
		files:     make(map[string]File),
		large:     make(map[string]bool),
		repos:     make(map[string]github.Repository),
		users:     make(map[string]github.User),
		userRepos: make(map[string][]github.Repository),
		codes:     make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Client returns an API client pointed at the fake for both REST and OAuth.
func (s *Server) Client() *github.Client {
	return github.NewClient(s.URL, s.URL, s.Server.Client())
}

func (s *Server) AddUser(token string, user github.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = user
}

func (s *Server) AddCode(code, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = token
}

func (s *Server) AddRepo(repo github.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repo.FullName == "" {
		repo.FullName = repo.Owner.Login + "/" + repo.Name
	}
	s.repos[strings.ToLower(repo.FullName)] = repo
}

func (s *Server) SetUserRepos(token string, repos []github.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRepos[token] = repos
}

func (s *Server) PutFile(owner, repo, path string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putFile(fileKey(owner, repo, path), content)
}

// MarkLarge makes the Contents API answer for the file the way GitHub does for
// files over 1 MB: encoding "none" and no content unless the raw media type is
// requested.
func (s *Server) MarkLarge(owner, repo, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.large[fileKey(owner, repo, path)] = true
}

func (s *Server) File(owner, repo, path string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileKey(owner, repo, path)]
	return file, ok
}

func (s *Server) Repo(owner, repo string) (github.Repository, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[strings.ToLower(owner+"/"+repo)]
	return r, ok
}

// Requests lists every request seen as "METHOD /path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func fileKey(owner, repo, path string) string {
	return strings.ToLower(owner+"/"+repo) + "/" + strings.Trim(path, "/")
}

func blobSHA(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func (s *Server) putFile(key string, content []byte) string {
	sha := blobSHA(append([]byte(key+"\x00"), content...))
	s.files[key] = File{Content: content, SHA: sha}
	return sha
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) token(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "login/oauth/access_token" && r.Method == http.MethodPost:
		s.exchange(w, r)
	case path == "user" && r.Method == http.MethodGet:
		user, ok := s.users[s.token(r)]
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		writeJSON(w, http.StatusOK, user)
	case path == "user/repos" && r.Method == http.MethodGet:
		if _, ok := s.users[s.token(r)]; !ok {
			writeMessage(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		repos := s.userRepos[s.token(r)]
		if repos == nil {
			repos = []github.Repository{}
		}
		writeJSON(w, http.StatusOK, repos)
	case len(parts) == 3 && parts[0] == "repos" && r.Method == http.MethodGet:
		repo, ok := s.repos[strings.ToLower(parts[1]+"/"+parts[2])]
		if !ok {
			writeMessage(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, repo)
	case len(parts) == 4 && parts[0] == "repos" && parts[3] == "generate" && r.Method == http.MethodPost:
		s.generate(w, r, parts[1], parts[2])
	case len(parts) >= 4 && parts[0] == "repos" && parts[3] == "contents":
		s.contents(w, r, parts[1], parts[2], strings.Join(parts[4:], "/"))
	default:
		writeMessage(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) exchange(w http.ResponseWriter, r *http.Request) {
	token, ok := s.codes[r.URL.Query().Get("code")]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"scope":        "repo,read:user,user:email",
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, templateOwner, templateRepo string) {
	user, ok := s.users[s.token(r)]
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}

	template, ok := s.repos[strings.ToLower(templateOwner+"/"+templateRepo)]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}

	var req github.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}
	if req.Owner == "" {
		req.Owner = user.Login
	}

	fullName := req.Owner + "/" + req.Name
	if _, exists := s.repos[strings.ToLower(fullName)]; exists {
		writeMessage(w, http.StatusUnprocessableEntity, "Name already exists on this account")
		return
	}

	templateCopy := template
	repo := github.Repository{
		ID:                 int64(len(s.repos) + 1000),
		Name:               req.Name,
		FullName:           fullName,
		Private:            req.Private,
		DefaultBranch:      "main",
		HTMLURL:            "https://github.com/" + fullName,
		Owner:              github.User{Login: req.Owner},
		Permissions:        &github.Permissions{Admin: true, Push: true, Pull: true},
		TemplateRepository: &templateCopy,
	}
	s.repos[strings.ToLower(fullName)] = repo

	prefix := strings.ToLower(template.FullName) + "/"
	for key, file := range s.files {
		if strings.HasPrefix(key, prefix) {
			s.putFile(fileKey(req.Owner, req.Name, strings.TrimPrefix(key, prefix)), file.Content)
		}
	}

	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) contents(w http.ResponseWriter, r *http.Request, owner, repo, path string) {
	key := fileKey(owner, repo, path)

	switch r.Method {
	case http.MethodGet:
		if file, ok := s.files[key]; ok {
			if strings.Contains(r.Header.Get("Accept"), "raw") {
				w.Header().Set("Content-Type", "application/vnd.github.raw")
				w.Write(file.Content)
				return
			}
			content := s.fileContent(path, file)
			if s.large[key] {
				content.Encoding = "none"
				content.Content = ""
			}
			writeJSON(w, http.StatusOK, content)
			return
		}

		var entries []github.FileContent
		prefix := key + "/"
		for k, file := range s.files {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			rest := strings.TrimPrefix(k, prefix)
			if strings.Contains(rest, "/") {
				continue
			}
			entries = append(entries, github.FileContent{
				Type: "file",
				Name: rest,
				Path: strings.Trim(path, "/") + "/" + rest,
				SHA:  file.SHA,
				Size: int64(len(file.Content)),
			})
		}
		if len(entries) == 0 {
			writeMessage(w, http.StatusNotFound, "Not Found")
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPut:
		if _, ok := s.users[s.token(r)]; !ok {
			writeMessage(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		if _, ok := s.repos[strings.ToLower(owner+"/"+repo)]; !ok {
			writeMessage(w, http.StatusNotFound, "Not Found")
			return
		}

		var payload struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "Problems parsing JSON")
			return
		}

		content, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil {
			writeMessage(w, http.StatusUnprocessableEntity, "content is not valid Base64")
			return
		}

		status := http.StatusCreated
		if existing, ok := s.files[key]; ok {
			if payload.SHA == "" {
				writeMessage(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"sha\" wasn't supplied.")
				return
			}
			if payload.SHA != existing.SHA {
				writeMessage(w, http.StatusConflict, strings.Trim(path, "/")+" does not match "+payload.SHA)
				return
			}
			status = http.StatusOK
		}

		sha := s.putFile(key, content)
		writeJSON(w, status, github.ContentResponse{
			Content: github.FileContent{Type: "file", Name: lastSegment(path), Path: strings.Trim(path, "/"), SHA: sha},
			Commit:  github.Commit{SHA: blobSHA([]byte(sha + payload.Message)), Message: payload.Message},
		})
	default:
		writeMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) fileContent(path string, file File) github.FileContent {
	encoded := base64.StdEncoding.EncodeToString(file.Content)

	// Mimic GitHub's 60-column wrapping.
	var wrapped strings.Builder
	for len(encoded) > 60 {
		wrapped.WriteString(encoded[:60])
		wrapped.WriteString("\n")
		encoded = encoded[60:]
	}
	wrapped.WriteString(encoded)

	return github.FileContent{
		Type:     "file",
		Name:     lastSegment(path),
		Path:     strings.Trim(path, "/"),
		SHA:      file.SHA,
		Size:     int64(len(file.Content)),
		Encoding: "base64",
		Content:  wrapped.String(),
	}
}

func lastSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return parts[len(parts)-1]
}
