package compile

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"modforge/internal/binbuf"
	"modforge/internal/builder"
	"modforge/internal/bundle"
	"modforge/internal/catalog"
	"modforge/internal/cloner"
	"modforge/internal/container"
	"modforge/internal/fileutil"
	"modforge/internal/globalindex"
	"modforge/internal/logging"
	"modforge/internal/patchset"
	"modforge/internal/probe"
	"modforge/internal/services"
)

func (o *Orchestrator) loadContainer(ctx context.Context) error {
	path := o.cfg.PrimaryContainerPath()
	c, err := container.Load(path)
	if err != nil {
		return services.Wrap(services.ErrStructural, string(StageLoadContainer), "load",
			fmt.Sprintf("load primary container %s", path), err)
	}
	o.container = c
	o.alloc = container.ForContainer(c)

	window := o.cfg.Compile.IdentityWindow
	if o.store != nil && o.cfg.Catalog.Enabled {
		if o.loadNamesFromCatalog(ctx, path, window) {
			return nil
		}
	}
	scan := catalog.ScanContainer(c, path, "", window)
	o.adoptScan(scan)
	return nil
}

// loadNamesFromCatalog resolves record identities through the scan cache,
// falling back to a fresh scan (and storing it) on a fingerprint miss. A
// broken catalog never fails the pass; it only costs the rescan.
func (o *Orchestrator) loadNamesFromCatalog(ctx context.Context, path string, window int) bool {
	fp, err := fileutil.Fingerprint(path)
	if err != nil {
		o.warn("fingerprint %s: %v", path, err)
		return false
	}
	if scan, ok, err := o.store.Lookup(ctx, fp); err == nil && ok {
		o.adoptScan(scan)
		o.logger.Debug("identity scan served from catalog",
			logging.String("fingerprint", fp),
			logging.Int("records", len(scan.Records)),
		)
		return true
	} else if err != nil {
		o.warn("catalog lookup: %v", err)
		return false
	}
	scan := catalog.ScanContainer(o.container, path, fp, window)
	o.adoptScan(scan)
	if err := o.store.Replace(ctx, scan); err != nil {
		o.warn("store scan in catalog: %v", err)
	}
	return true
}

func (o *Orchestrator) adoptScan(scan *catalog.ContainerScan) {
	for _, rs := range scan.Records {
		if rec, ok := o.container.RecordByID(rs.NumericID); ok {
			o.byName[rs.Name] = rec
		}
	}
}

func (o *Orchestrator) processClones(ctx context.Context) error {
	for _, templateType := range sortedKeys(o.set.Clones) {
		clones := o.set.Clones[templateType]
		for _, newName := range sortedKeys(clones) {
			sourceName := clones[newName]
			src, ok := o.byName[sourceName]
			if !ok {
				o.warn("clone %q under %q: source %q not found", newName, templateType, sourceName)
				continue
			}
			if _, exists := o.byName[newName]; exists {
				o.warn("clone %q under %q: a record with that name already exists", newName, templateType)
				continue
			}
			clone, res, err := cloner.CloneRecord(src, newName, len(src.Data), o.alloc)
			if err != nil {
				if !services.IsWarning(err) {
					return err
				}
				o.warn("clone %q under %q: %v", newName, templateType, err)
				continue
			}
			if res.Degraded {
				o.warn("%s", res.Warning)
			}
			o.container.Append(clone)
			o.touch(newName, clone)
			o.counts.Cloned++
		}
	}
	return nil
}

func (o *Orchestrator) processPatches(ctx context.Context) error {
	version := int(o.container.StructuralVersion)
	for _, templateType := range sortedKeys(o.set.Patches) {
		instances := o.set.Patches[templateType]
		for _, name := range sortedKeys(instances) {
			fields := instances[name]
			rec, ok := o.byName[name]
			if !ok {
				o.warn("patch %q under %q: record not found", name, templateType)
				continue
			}
			var err error
			switch {
			case rec.TypeTag == container.TypeDataRecord:
				err = o.patchDataRecord(rec, fields)
			default:
				desc, found := o.registry.Lookup(templateType, version)
				if !found {
					o.warn("patch %q: no layout for template type %q", name, templateType)
					continue
				}
				err = o.patchFixedFields(rec, desc, version, fields)
			}
			if err != nil {
				if !services.IsWarning(err) {
					return err
				}
				o.warn("patch %q under %q: %v", name, templateType, err)
				continue
			}
			o.touch(name, rec)
			o.counts.Patched++
		}
	}
	return nil
}

// patchFixedFields rewrites fixed-width prologue fields in place through the
// probed offset table. Fixed fields never resize, so the record bytes are
// patched directly.
func (o *Orchestrator) patchFixedFields(rec *container.Record, desc *probe.LayoutDescriptor, version int, fields map[string]any) error {
	table, err := probe.Probe(rec.Data, desc, version)
	if err != nil {
		return fmt.Errorf("probe record: %w", err)
	}
	for _, name := range sortedKeys(fields) {
		value := fields[name]
		f, ok := table.Field(name)
		if !ok {
			return fmt.Errorf("layout %q has no field %q", desc.Kind, name)
		}
		if patchset.IsArrayOp(value) {
			return fmt.Errorf("field %q: array ops apply to data record payloads only", name)
		}
		num, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %q: fixed field wants a number, got %T", name, value)
		}
		if err := writeScalar(rec.Data, f, num); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

func writeScalar(data []byte, f probe.FieldOffset, v float64) error {
	switch f.Kind {
	case probe.KindInt16:
		binary.LittleEndian.PutUint16(data[f.Offset:], uint16(int16(v)))
	case probe.KindInt32:
		binary.LittleEndian.PutUint32(data[f.Offset:], uint32(int32(v)))
	case probe.KindInt64:
		binary.LittleEndian.PutUint64(data[f.Offset:], uint64(int64(v)))
	case probe.KindFloat32:
		binary.LittleEndian.PutUint32(data[f.Offset:], math.Float32bits(float32(v)))
	default:
		return fmt.Errorf("cannot write %s field in place", f.Kind)
	}
	return nil
}

// dataRecordLayout bootstraps payload location for script-defined records:
// only the leading name is declared, the payload is found heuristically.
var dataRecordLayout = &probe.LayoutDescriptor{
	Kind:    "data_record",
	TypeTag: container.TypeDataRecord,
	Fields:  []probe.FieldSpec{{Name: "name", Kind: probe.KindString}},
}

// patchDataRecord treats the record payload as a JSON document and applies
// field patches at value level, including array op directives.
func (o *Orchestrator) patchDataRecord(rec *container.Record, fields map[string]any) error {
	table, err := probe.Probe(rec.Data, dataRecordLayout, int(o.container.StructuralVersion))
	if err != nil {
		return fmt.Errorf("locate payload: %w", err)
	}
	payload := rec.Data[table.PayloadOffset : table.PayloadOffset+table.PayloadSize]
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("payload is not a json document: %w", err)
	}

	for _, field := range sortedKeys(fields) {
		value := fields[field]
		if patchset.IsArrayOp(value) {
			current, ok := doc[field].([]any)
			if !ok {
				return fmt.Errorf("field %q: array op against non-array value %T", field, doc[field])
			}
			updated, err := patchset.ApplyOps(current, value.(map[string]any))
			if err != nil {
				return fmt.Errorf("field %q: %w", field, err)
			}
			doc[field] = updated
			continue
		}
		doc[field] = value
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize patched payload: %w", err)
	}
	b := binbuf.NewBuilder(rec.Data)
	if err := b.CopyThrough(table.PayloadSizeOffset); err != nil {
		return err
	}
	if err := b.ReplaceSizedBlock(table.PayloadSize, out); err != nil {
		return err
	}
	if err := b.CopyRest(); err != nil {
		return err
	}
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	rec.Data = data
	return nil
}

func (o *Orchestrator) processMedia(ctx context.Context) error {
	version := int(o.container.StructuralVersion)
	// A kind whose template cannot be probed fails every item the same way;
	// report it once and skip the rest of that kind.
	failedKinds := make(map[string]struct{})
	for _, m := range o.set.Media {
		if _, bad := failedKinds[m.Kind]; bad {
			continue
		}
		if err := o.buildMedia(m, version); err != nil {
			if errors.Is(err, services.ErrProbing) {
				failedKinds[m.Kind] = struct{}{}
				o.warn("media kind %q: %v; skipping remaining items of this kind", m.Kind, err)
				continue
			}
			o.warn("media %q: %v", m.Name, err)
			continue
		}
		o.counts.MediaBuilt++
	}
	return nil
}

func (o *Orchestrator) buildMedia(m patchset.MediaRequest, version int) error {
	desc, ok := o.registry.Lookup(m.Kind, version)
	if !ok {
		return services.Wrap(services.ErrProbing, string(StageProcessMedia), "layout",
			fmt.Sprintf("no layout for kind %q", m.Kind), nil)
	}
	template, err := o.mediaTemplate(m, desc.TypeTag)
	if err != nil {
		return err
	}
	table, err := probe.Probe(template.Data, desc, version)
	if err != nil {
		return services.Wrap(services.ErrProbing, string(StageProcessMedia), "probe",
			"probe template record", err)
	}

	var data []byte
	switch m.Kind {
	case patchset.MediaTexture:
		data, err = builder.Texture(template.Data, table, m.Source, m.Name)
	case patchset.MediaAudio:
		data, err = builder.Audio(template.Data, table, m.Source, m.Name)
	case patchset.MediaSprite:
		params, perr := builder.SpriteParamsFromImage(m.Source, templateFloat(template.Data, table, "pixels_per_unit", 100), templateInt64(template.Data, table, "texture_ref"))
		if perr != nil {
			return perr
		}
		data, err = builder.Sprite(template.Data, table, m.Name, params)
	default:
		return fmt.Errorf("unsupported media kind %q", m.Kind)
	}
	if err != nil {
		return err
	}

	if existing, ok := o.byName[m.Name]; ok && existing.TypeTag == desc.TypeTag {
		// Replacement takes over the record in place but under a fresh
		// numeric id, so the index patch re-points the path and stale
		// references to the old id cannot alias the new content.
		existing.Data = data
		existing.NumericID = o.alloc.Next()
		o.touch(m.Name, existing)
		if m.IndexPath != "" {
			o.indexMuts = append(o.indexMuts, indexMutation{path: m.IndexPath, originType: desc.TypeTag, numericID: existing.NumericID})
		}
		return nil
	}
	rec := &container.Record{
		NumericID:   o.alloc.Next(),
		TypeTag:     desc.TypeTag,
		ScriptIndex: template.ScriptIndex,
		Data:        data,
	}
	o.container.Append(rec)
	o.touch(m.Name, rec)
	if m.IndexPath != "" {
		o.indexMuts = append(o.indexMuts, indexMutation{path: m.IndexPath, originType: desc.TypeTag, numericID: rec.NumericID})
	}
	return nil
}

func (o *Orchestrator) mediaTemplate(m patchset.MediaRequest, typeTag int32) (*container.Record, error) {
	if m.Template != "" {
		rec, ok := o.byName[m.Template]
		if !ok {
			return nil, services.Wrap(services.ErrIdentity, string(StageProcessMedia), "template",
				fmt.Sprintf("template record %q not found", m.Template), nil)
		}
		if rec.TypeTag != typeTag {
			return nil, fmt.Errorf("template %q has type tag %d, kind wants %d", m.Template, rec.TypeTag, typeTag)
		}
		return rec, nil
	}
	recs := o.container.RecordsByType(typeTag)
	if len(recs) == 0 {
		return nil, services.Wrap(services.ErrProbing, string(StageProcessMedia), "template",
			fmt.Sprintf("container has no record with type tag %d to use as template", typeTag), nil)
	}
	return recs[0], nil
}

func templateFloat(data []byte, table *probe.OffsetTable, field string, fallback float32) float32 {
	f, ok := table.Field(field)
	if !ok || f.Kind != probe.KindFloat32 {
		return fallback
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data[f.Offset:]))
}

func templateInt64(data []byte, table *probe.OffsetTable, field string) int64 {
	f, ok := table.Field(field)
	if !ok || f.Kind != probe.KindInt64 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(data[f.Offset:]))
}

func (o *Orchestrator) patchGlobalIndex(ctx context.Context) error {
	if len(o.indexMuts) == 0 {
		return nil
	}
	path := o.cfg.GlobalIndexPath()
	ic, err := container.Load(path)
	if err != nil {
		return services.Wrap(services.ErrStructural, string(StagePatchGlobalIndex), "load",
			fmt.Sprintf("load global index container %s", path), err)
	}
	recs := ic.RecordsByType(container.TypeGlobalIndex)
	if len(recs) == 0 {
		return services.Wrap(services.ErrStructural, string(StagePatchGlobalIndex), "find",
			"global index container holds no index record", nil)
	}
	rec := recs[0]
	table, err := globalindex.Parse(rec.Data)
	if err != nil {
		return err
	}
	for _, mut := range o.indexMuts {
		if table.Set(mut.path, mut.originType, mut.numericID) {
			o.counts.IndexReplaced++
		} else {
			o.counts.IndexInserted++
		}
	}
	rec.Data = table.Serialize()

	out := filepath.Join(o.cfg.Paths.OutputDir, filepath.Base(path))
	if err := ic.WriteFile(out); err != nil {
		return services.Wrap(services.ErrSerialization, string(StagePatchGlobalIndex), "write",
			"write patched global index container", err)
	}
	o.logger.Info("global index patched",
		logging.Int("replaced", o.counts.IndexReplaced),
		logging.Int("inserted", o.counts.IndexInserted),
		logging.String("output", out),
	)
	return nil
}

func (o *Orchestrator) writeOutput(ctx context.Context, res *Result) error {
	payload, err := o.container.Serialize()
	if err != nil {
		return o.fallbackToLoose(res, services.Wrap(services.ErrSerialization, string(StageWriteOutput), "serialize",
			"serialize mutated container", err))
	}
	outPath := o.cfg.OutputBundlePath()
	werr := bundle.WriteFile(outPath, payload, bundle.WriteOptions{
		PlayerVersion: o.cfg.Engine.PlayerVersion,
		EngineVersion: o.cfg.Engine.EngineVersion,
		InternalName:  o.cfg.Containers.InternalName,
	})
	if werr != nil {
		return o.fallbackToRaw(res, payload, werr)
	}
	if o.cfg.Compile.KeepRawContainer {
		rawPath := outPath + ".raw"
		if err := os.WriteFile(rawPath, payload, 0o644); err != nil {
			o.warn("keep raw container: %v", err)
		}
	}
	res.OutputPath = outPath
	return nil
}

// fallbackToRaw writes the re-serialized container as a plain file when the
// envelope writer fails. The pass still succeeds, degraded, with the raw
// container standing in for the bundle.
func (o *Orchestrator) fallbackToRaw(res *Result, payload []byte, cause error) error {
	rawPath := filepath.Join(o.cfg.Paths.OutputDir, filepath.Base(o.cfg.PrimaryContainerPath()))
	if err := os.WriteFile(rawPath, payload, 0o644); err != nil {
		o.warn("raw container fallback: %v", err)
		return o.fallbackToLoose(res, cause)
	}
	res.OutputPath = rawPath
	o.warn("envelope write failed (%v); raw container written to %s", cause, rawPath)
	return nil
}

// fallbackToLoose is the last resort when no container form can be produced
// at all: every mutated record goes out as a loose file under a JSON
// manifest, and the pass still finishes as a degraded success.
func (o *Orchestrator) fallbackToLoose(res *Result, cause error) error {
	manifest, err := o.writeLooseAssets()
	if err != nil {
		o.warn("loose-asset fallback: %v", err)
		return cause
	}
	res.FallbackManifest = manifest
	o.warn("output serialization failed (%v); mutated assets written loose, manifest at %s", cause, manifest)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
