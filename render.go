// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// filetimeUnixDiff100ns is the number of 100ns ticks between the FILETIME
// epoch (1601-01-01 00:00:00 UTC) and the Unix epoch.
const filetimeUnixDiff100ns = 116444736000000000

// FileTimeToTime converts a FILETIME tick count to a UTC time.Time.
func FileTimeToTime(ticks uint64) time.Time {
	d := int64(ticks) - filetimeUnixDiff100ns
	return time.Unix(d/10000000, (d%10000000)*100).UTC()
}

// FormatSysTime renders a SYSTEMTIME as ISO-8601 with fixed 6-digit
// microsecond precision and a Zulu suffix.
func FormatSysTime(st SysTime) string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%06dZ",
		st.Year, st.Month, st.Day, st.Hour, st.Minute, st.Second, st.Milliseconds*1000)
}

// FormatSid renders a Sid in its canonical "S-1-5-21-..." string form.
func FormatSid(s Sid) string {
	var b strings.Builder
	b.WriteString("S-")
	b.WriteString(strconv.FormatUint(uint64(s.Revision), 10))
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(s.Authority, 10))
	for _, sub := range s.SubAuthorities {
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(uint64(sub), 10))
	}
	return b.String()
}

// FormatValue renders v as the text that appears in XML element/attribute
// content and (after JSON-specific re-typing in jsonemit.go) as the
// fallback string form for any JSON leaf not given its own native JSON
// type.
func FormatValue(v Value) (string, error) {
	if v.Kind.IsArray() {
		if len(v.Array) == 0 {
			return "", nil
		}
		return FormatValue(v.Array[0])
	}

	switch v.Kind {
	case NullType:
		return "", nil

	case StringType:
		if v.Str != "" {
			return v.Str, nil
		}
		return decodeUTF16LE(v.U16Str)

	case AnsiStringType:
		return v.Str, nil

	case Int8Type, Int16Type, Int32Type, Int64Type:
		return strconv.FormatInt(v.I64, 10), nil

	case UInt8Type, UInt16Type, UInt32Type, UInt64Type:
		return strconv.FormatUint(v.U64, 10), nil

	case Real32Type:
		return strconv.FormatFloat(float64(v.F32), 'g', -1, 32), nil

	case Real64Type:
		return strconv.FormatFloat(v.F64, 'g', -1, 64), nil

	case BoolType:
		if v.Bool {
			return "true", nil
		}
		return "false", nil

	case BinaryType:
		return strings.ToUpper(hex.EncodeToString(v.Bytes)), nil

	case GuidType:
		return strings.ToUpper(v.Guid.String()), nil

	case FileTimeType:
		return FileTimeToTime(v.FileNs).Format("2006-01-02T15:04:05.000000Z"), nil

	case SysTimeType:
		return FormatSysTime(v.SysTime), nil

	case SidType:
		return FormatSid(v.Sid), nil

	case HexInt32Type:
		return fmt.Sprintf("0x%x", uint32(v.U64)), nil

	case HexInt64Type:
		return fmt.Sprintf("0x%x", v.U64), nil

	case EvtHandleType:
		return fmt.Sprintf("0x%x", v.U64), nil

	case BinXmlType:
		return strings.ToUpper(hex.EncodeToString(v.BinXmlPayload)), nil

	case EvtXmlType:
		return string(v.Bytes), nil

	default:
		return "", ErrUnexpectedValueKind
	}
}
