package cotgen

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Namespace seeds every event uid, so the same source, index and name
// always give the same uid.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/stronnag/kml2cot"))

func EventUID(source string, index int, name string) string {
	return uuid.NewSHA1(Namespace, []byte(source+"\x00"+strconv.Itoa(index)+"\x00"+name)).String()
}

func linkUID(event string, i int) string {
	return uuid.NewSHA1(Namespace, []byte(event+"/"+strconv.Itoa(i))).String()
}

const unnamed = "unnamed_feature"

// SanitizeFilename keeps a name safe on any filesystem: reserved
// characters and non-ASCII runes go, spaces become underscores.
func SanitizeFilename(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`\/*?:"<>|`, r):
		case r == ' ':
			sb.WriteByte('_')
		case r < 0x20 || r > 0x7e:
		default:
			sb.WriteRune(r)
		}
	}
	res := strings.Trim(sb.String(), "_")
	if res == "" {
		return unnamed
	}
	return res
}

// DefaultPrefix derives an output prefix from a source identity. Directory
// separators in relative sources become underscores so prefixes stay unique.
func DefaultPrefix(source string) string {
	s := strings.TrimSuffix(source, path.Ext(source))
	s = strings.ReplaceAll(s, "/", "_")
	return SanitizeFilename(s)
}

// SourceTag is a short stable tag for a source, used to tell apart sources
// whose default prefixes coincide.
func SourceTag(source string) string {
	return uuid.NewSHA1(Namespace, []byte("source\x00"+source)).String()[:8]
}

func FileName(prefix string, index int) string {
	return fmt.Sprintf("%s_%d.cot", prefix, index+1)
}

func DiagName(prefix string) string {
	return prefix + ".diag.yaml"
}
