package api

import (
	"io/fs"
	"net/http"
	"path"
)

// staticHandler serves files under dir. Directories are served only through
// their index.html; there are no listings. A missing dir yields 404s.
func staticHandler(dir string) http.Handler {
	return http.FileServer(indexOnlyFS{http.Dir(dir)})
}

type indexOnlyFS struct {
	fs http.FileSystem
}

func (f indexOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if !info.IsDir() {
		return file, nil
	}

	index, err := f.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		file.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()
	return file, nil
}
