package resolver

import (
	"fmt"
	"testing"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	files map[string]*ast.File
}

func (f *fakeLoader) Load(path string) (*ast.File, error) {
	file, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return file, nil
}

func fileWithImports(path string, imports ...string) *ast.File {
	f := &ast.File{Path: path}
	for _, imp := range imports {
		f.Imports = append(f.Imports, &ast.ImportDecl{Path: imp})
	}
	return f
}

func TestResolve_PostOrder(t *testing.T) {
	loader := &fakeLoader{files: map[string]*ast.File{
		"main":  fileWithImports("main", "a", "b"),
		"a":     fileWithImports("a", "b"),
		"b":     fileWithImports("b"),
	}}
	res, err := Resolve("main", loader)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "main"}, res.Order)
}

func TestResolve_CircularDependency(t *testing.T) {
	loader := &fakeLoader{files: map[string]*ast.File{
		"main": fileWithImports("main", "a"),
		"a":    fileWithImports("a", "b"),
		"b":    fileWithImports("b", "a"),
	}}
	_, err := Resolve("main", loader)
	require.Error(t, err)
	var cycle *CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	require.Contains(t, cycle.Path, "a")
	require.Contains(t, cycle.Path, "b")
}

func TestResolve_ImportNotFound(t *testing.T) {
	loader := &fakeLoader{files: map[string]*ast.File{
		"main": fileWithImports("main", "missing"),
	}}
	_, err := Resolve("main", loader)
	require.Error(t, err)
	var notFound *ImportNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.Name)
	require.Equal(t, "main", notFound.FromFile)
}

func TestClassify(t *testing.T) {
	require.Equal(t, ManagedStdlib, Classify("std/json"))
	require.Equal(t, RuntimeNative, Classify("native/fs"))
	require.Equal(t, Internal, Classify("./helpers"))
}
