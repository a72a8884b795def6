package dex

import (
	"fmt"
	"runtime"
	"sync"

	"DexTracer/internal/apk"
)

// ExtractClasses turns every class definition of the snapshot into the
// analysis model. A class that cannot be resolved is skipped and reported as a
// diagnostic; only a structurally unusable snapshot fails the whole call.
//
// The parallel path fans class definitions out to one worker per CPU and
// writes each result into a preallocated slot, so the returned slice has the
// same order and content as the sequential path.
func ExtractClasses(snap *apk.Snapshot, parallel bool) ([]Class, []apk.Diagnostic, error) {
	if snap == nil || len(snap.Dex) == 0 {
		return nil, nil, &apk.Error{Kind: apk.ErrInvalidSnapshot, Detail: "snapshot contains no dex files"}
	}

	var classes []Class
	var diags []apk.Diagnostic

	for di := range snap.Dex {
		d := &snap.Dex[di]
		res := NewResolver(d)

		results := make([]extractResult, len(d.Classes))
		if parallel && len(d.Classes) > 1 {
			extractDexParallel(res, d, di, results)
		} else {
			for ci := range d.Classes {
				results[ci] = extractClass(res, d, di, ci)
			}
		}

		for ci := range results {
			diags = append(diags, results[ci].diags...)
			if results[ci].ok {
				classes = append(classes, results[ci].class)
			}
		}
	}

	return classes, diags, nil
}

type extractResult struct {
	class Class
	ok    bool
	diags []apk.Diagnostic
}

func extractDexParallel(res *Resolver, d *apk.Dex, dexIndex int, results []extractResult) {
	jobs := make(chan int, len(d.Classes))
	for ci := range d.Classes {
		jobs <- ci
	}
	close(jobs)

	workers := runtime.NumCPU()
	if workers > len(d.Classes) {
		workers = len(d.Classes)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ci := range jobs {
				results[ci] = extractClass(res, d, dexIndex, ci)
			}
		}()
	}
	wg.Wait()
}

func extractClass(res *Resolver, d *apk.Dex, dexIndex, classIndex int) extractResult {
	def := &d.Classes[classIndex]

	className, err := res.Type(int(def.ClassIdx))
	if err != nil {
		return extractResult{diags: []apk.Diagnostic{{
			Kind:   apk.ErrNotFound,
			Dex:    d.Name,
			Class:  fmt.Sprintf("class_def #%d", classIndex),
			Reason: err.Error(),
		}}}
	}

	cls := Class{
		ClassName:   className,
		AccessFlags: def.AccessFlags,
	}
	cls.PackageName, cls.SimpleName = SplitClassName(className)

	var diags []apk.Diagnostic

	if def.SuperclassIdx != apk.NoIndex {
		super, err := res.Type(int(def.SuperclassIdx))
		if err != nil {
			diags = append(diags, apk.Diagnostic{
				Kind: apk.ErrNotFound, Dex: d.Name, Class: className,
				Reason: "unresolvable superclass: " + err.Error(),
			})
		} else {
			cls.Superclass = super
		}
	}
	for _, ii := range def.InterfaceIdxs {
		iface, err := res.Type(int(ii))
		if err != nil {
			diags = append(diags, apk.Diagnostic{
				Kind: apk.ErrNotFound, Dex: d.Name, Class: className,
				Reason: "unresolvable interface: " + err.Error(),
			})
			continue
		}
		cls.Interfaces = append(cls.Interfaces, iface)
	}

	for _, ef := range def.Fields {
		_, fname, ftype, err := res.Field(int(ef.FieldIdx))
		if err != nil {
			diags = append(diags, apk.Diagnostic{
				Kind: apk.ErrNotFound, Dex: d.Name, Class: className,
				Reason: "unresolvable field: " + err.Error(),
			})
			continue
		}
		cls.Fields = append(cls.Fields, Field{
			Name:           fname,
			Type:           ftype,
			DeclaringClass: className,
			AccessFlags:    ef.AccessFlags,
		})
	}

	for _, em := range def.Methods {
		ref, err := res.Method(int(em.MethodIdx))
		if err != nil {
			diags = append(diags, apk.Diagnostic{
				Kind: apk.ErrNotFound, Dex: d.Name, Class: className,
				Reason: "unresolvable method: " + err.Error(),
			})
			continue
		}
		cls.Methods = append(cls.Methods, Method{
			Name:           ref.MethodName,
			DeclaringClass: className,
			Params:         ref.Params,
			Return:         ref.Return,
			AccessFlags:    em.AccessFlags,
			Code:           em.Code,
			DexIndex:       dexIndex,
		})
	}

	return extractResult{class: cls, ok: true, diags: diags}
}
