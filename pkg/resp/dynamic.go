package resp

import (
	"math/big"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// ReplyKind identifies which alternative of a DynamicReply is populated.
type ReplyKind int

const (
	ReplyNil ReplyKind = iota
	ReplyString
	ReplyError
	ReplyNumber
	ReplyDouble
	ReplyBool
	ReplyBigNumber
	ReplyList
	ReplySet
	ReplyMap
)

// DynamicReply is a fully dynamic reply tree: a tagged sum covering every
// RESP2/RESP3 frame tag, recursive at the aggregate cases. It is the
// allocating decoder's escape hatch for callers that don't know the shape
// of a reply ahead of time (e.g. a generic command runner).
type DynamicReply struct {
	Kind ReplyKind

	Str    []byte          // ReplyString, ReplyError (the message); not set for ReplyBigNumber
	Number int64           // ReplyNumber
	Double float64         // ReplyDouble
	Bool   bool            // ReplyBool
	Big    *big.Int        // ReplyBigNumber, parsed
	List   []DynamicReply  // ReplyList, ReplySet
	Map    []KV[DynamicReply, DynamicReply] // ReplyMap
}

// String renders the value held, mostly for debugging and tests.
func (d DynamicReply) String() string {
	switch d.Kind {
	case ReplyNil:
		return "<nil>"
	case ReplyString:
		return string(d.Str)
	case ReplyError:
		return "ERR:" + string(d.Str)
	case ReplyNumber:
		return strconv.FormatInt(d.Number, 10)
	case ReplyBigNumber:
		if d.Big != nil {
			return d.Big.String()
		}
		return string(d.Str)
	default:
		return "<" + reflectKindName(d.Kind) + ">"
	}
}

// respFree releases the allocation(s) backing whichever branch Kind
// selects. ReplyNumber, ReplyDouble, ReplyBool, ReplyBigNumber, and
// ReplyNil carry no allocator-tracked state.
func (d DynamicReply) respFree(a Allocator) error {
	switch d.Kind {
	case ReplyString, ReplyError:
		a.FreeBytes(d.Str)
		return nil
	case ReplyList, ReplySet:
		a.FreeCell()
		return freeDynamicList(d.List, a)
	case ReplyMap:
		a.FreeCell()
		return freeDynamicMap(d.Map, a)
	default:
		return nil
	}
}

func freeDynamicList(list []DynamicReply, a Allocator) error {
	var errs *multierror.Error
	for i := range list {
		if err := list[i].respFree(a); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func freeDynamicMap(pairs []KV[DynamicReply, DynamicReply], a Allocator) error {
	var errs *multierror.Error
	for i := range pairs {
		if err := pairs[i].respFree(a); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func reflectKindName(k ReplyKind) string {
	switch k {
	case ReplyDouble:
		return "double"
	case ReplyBool:
		return "bool"
	case ReplyList:
		return "list"
	case ReplySet:
		return "set"
	case ReplyMap:
		return "map"
	default:
		return "reply"
	}
}
