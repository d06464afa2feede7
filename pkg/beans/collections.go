package beans

import (
	"fmt"
	"reflect"

	"github.com/funvibe/dynlink/pkg/linker"
)

var intType = reflect.TypeFor[int]()

// collectionKind is the structural capability of a type for getLength,
// getItem and setItem.
type collectionKind int

const (
	notCollection collectionKind = iota
	arrayLike                    // [N]T, read-only through a value receiver
	arrayPtrLike                 // *[N]T
	listLike                     // []T
	mapLike                      // map[K]V
	sized                        // string, chan, or a Len() int method
)

func (l *instanceLinker) collection() collectionKind {
	switch l.typ.Kind() {
	case reflect.Array:
		return arrayLike
	case reflect.Slice:
		return listLike
	case reflect.Map:
		return mapLike
	case reflect.String, reflect.Chan:
		return sized
	case reflect.Pointer:
		if l.typ.Elem().Kind() == reflect.Array {
			return arrayPtrLike
		}
	}
	if l.facet.lenFn != nil {
		return sized
	}
	return notCollection
}

func (l *instanceLinker) linkGetLength() (*linker.GuardedInvocation, error) {
	var target linker.Target
	switch l.collection() {
	case arrayPtrLike:
		n := l.typ.Elem().Len()
		target = func(args ...any) (any, error) { return n, nil }
	case arrayLike, listLike, mapLike:
		target = reflectLen
	case sized:
		if l.facet.lenFn != nil && l.typ.Kind() != reflect.String && l.typ.Kind() != reflect.Chan {
			target = memberTarget(&Selection{Member: l.facet.lenFn}, linker.DefaultConverter)
		} else {
			target = reflectLen
		}
	default:
		return nil, nil
	}
	return linker.NewGuardedInvocation(target, l.guard), nil
}

func reflectLen(args ...any) (any, error) {
	return reflect.ValueOf(args[0]).Len(), nil
}

func (l *instanceLinker) linkGetItem(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	if len(req.Args) < 2 {
		return nil, nil
	}
	conv := svc.Converter()
	var target linker.Target
	switch l.collection() {
	case arrayLike, listLike:
		target = func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			v := reflect.ValueOf(args[0])
			i, err := index(args, v.Len(), conv)
			if err != nil {
				return nil, err
			}
			return v.Index(i).Interface(), nil
		}
	case arrayPtrLike:
		target = func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			v := reflect.ValueOf(args[0]).Elem()
			i, err := index(args, v.Len(), conv)
			if err != nil {
				return nil, err
			}
			return v.Index(i).Interface(), nil
		}
	case mapLike:
		keyType := l.typ.Key()
		target = func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			k, err := conv.Convert(args[1], keyType)
			if err != nil {
				return nil, fmt.Errorf("%w: map key: %v", linker.ErrInvocation, err)
			}
			mv := reflect.ValueOf(args[0]).MapIndex(k)
			if !mv.IsValid() {
				return nil, nil
			}
			return mv.Interface(), nil
		}
	default:
		return nil, nil
	}
	return linker.NewGuardedInvocation(target, l.guard), nil
}

func (l *instanceLinker) linkSetItem(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	if len(req.Args) < 3 {
		return nil, nil
	}
	conv := svc.Converter()
	var target linker.Target
	switch l.collection() {
	case listLike, arrayPtrLike:
		elemType := l.typ.Elem()
		if l.typ.Kind() == reflect.Pointer {
			elemType = elemType.Elem()
		}
		target = func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			v := reflect.ValueOf(args[0])
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return nil, fmt.Errorf("%w: setItem on nil %s", linker.ErrInvocation, v.Type())
				}
				v = v.Elem()
			}
			i, err := index(args, v.Len(), conv)
			if err != nil {
				return nil, err
			}
			nv, err := conv.Convert(args[2], elemType)
			if err != nil {
				return nil, fmt.Errorf("%w: element: %v", linker.ErrInvocation, err)
			}
			v.Index(i).Set(nv)
			return nil, nil
		}
	case mapLike:
		keyType, elemType := l.typ.Key(), l.typ.Elem()
		target = func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			k, err := conv.Convert(args[1], keyType)
			if err != nil {
				return nil, fmt.Errorf("%w: map key: %v", linker.ErrInvocation, err)
			}
			nv, err := conv.Convert(args[2], elemType)
			if err != nil {
				return nil, fmt.Errorf("%w: map value: %v", linker.ErrInvocation, err)
			}
			reflect.ValueOf(args[0]).SetMapIndex(k, nv)
			return nil, nil
		}
	default:
		// arrays held by value are not addressable
		return nil, nil
	}
	return linker.NewGuardedInvocation(target, l.guard), nil
}

// index converts args[1] to an int and checks it against n. Bounds are a
// runtime condition of the invocation, never of linking.
func index(args []any, n int, conv linker.Converter) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: missing index", linker.ErrInvocation)
	}
	iv, err := conv.Convert(args[1], intType)
	if err != nil {
		return 0, fmt.Errorf("%w: index: %v", linker.ErrInvocation, err)
	}
	i := int(iv.Int())
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: index %d, length %d", linker.ErrIndexOutOfBounds, i, n)
	}
	return i, nil
}
