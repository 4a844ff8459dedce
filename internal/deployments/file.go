package deployments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	xerrors "Web3-Scaffold/internal/errors"
)

// FileSource reads <network>/<Contract>.json from a file system, typically
// the embedded deploys package or os.DirFS of a deploy output directory.
type FileSource struct {
	fsys fs.FS
}

// NewFileSource wraps fsys.
func NewFileSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

// Lookup implements Source.
func (s *FileSource) Lookup(ctx context.Context, network, contract string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if network == "" || contract == "" {
		return Record{}, xerrors.New(xerrors.CodeInvalidArgument, "network 与 contract 不能为空")
	}

	name := path.Join(network, contract+".json")
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, xerrors.Wrap(xerrors.CodeNotFound, ErrNotFound,
				fmt.Sprintf("未找到部署记录 %s", name))
		}
		return Record{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("读取部署记录 %s 失败", name))
	}
	return Decode(data, network, contract)
}

// List returns every record found one directory level below the root.
func (s *FileSource) List(ctx context.Context) ([]Record, error) {
	matches, err := fs.Glob(s.fsys, "*/*.json")
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(matches))
	for _, match := range matches {
		network := path.Dir(match)
		contract := path.Base(match)
		contract = contract[:len(contract)-len(".json")]
		rec, err := s.Lookup(ctx, network, contract)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

var (
	_ Source = (*FileSource)(nil)
	_ Lister = (*FileSource)(nil)
)
