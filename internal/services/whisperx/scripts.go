package whisperx

// Worker driver sources passed to python -c. Each driver loads its model
// from the JSON config in argv[1], emits a ready event, then answers one
// JSON response line per JSON request line until stdin closes. NaN and
// infinity leak out of alignment scores, so results are scrubbed before
// serialization.

const asrDriver = `
import json, math, sys

def clean(v):
    if isinstance(v, float):
        return None if (math.isnan(v) or math.isinf(v)) else v
    if isinstance(v, dict):
        return {k: clean(x) for k, x in v.items()}
    if isinstance(v, list):
        return [clean(x) for x in v]
    return v

def reply(payload):
    sys.stdout.write(json.dumps(payload, ensure_ascii=False) + "\n")
    sys.stdout.flush()

cfg = json.loads(sys.argv[1])
import whisperx
vad_options = None
if cfg.get("vad_onset") is not None or cfg.get("vad_offset") is not None:
    vad_options = {}
    if cfg.get("vad_onset") is not None:
        vad_options["vad_onset"] = cfg["vad_onset"]
    if cfg.get("vad_offset") is not None:
        vad_options["vad_offset"] = cfg["vad_offset"]
kwargs = {}
if cfg.get("vad_method"):
    kwargs["vad_method"] = cfg["vad_method"]
if vad_options:
    kwargs["vad_options"] = vad_options
model = whisperx.load_model(
    cfg["model"],
    device=cfg["device"],
    compute_type=cfg["compute_type"],
    **kwargs,
)
reply({"event": "ready"})
for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    req = json.loads(line)
    try:
        result = model.transcribe(
            req["audio_path"],
            language=req.get("language") or None,
            task=req.get("task") or "transcribe",
            batch_size=req.get("batch_size") or 16,
            chunk_size=req.get("chunk_size") or 30,
        )
        reply({"ok": True, "result": clean(result)})
    except Exception as exc:
        reply({"ok": False, "error": str(exc)})
`

const alignDriver = `
import json, math, sys

def clean(v):
    if isinstance(v, float):
        return None if (math.isnan(v) or math.isinf(v)) else v
    if isinstance(v, dict):
        return {k: clean(x) for k, x in v.items()}
    if isinstance(v, list):
        return [clean(x) for x in v]
    return v

def reply(payload):
    sys.stdout.write(json.dumps(payload, ensure_ascii=False) + "\n")
    sys.stdout.flush()

cfg = json.loads(sys.argv[1])
import whisperx
if cfg.get("align_model"):
    model, metadata = whisperx.load_align_model(
        language_code=cfg["language"],
        device=cfg["device"],
        model_name=cfg["align_model"],
    )
else:
    model, metadata = whisperx.load_align_model(
        language_code=cfg["language"],
        device=cfg["device"],
    )
reply({"event": "ready"})
for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    req = json.loads(line)
    try:
        result = whisperx.align(
            req["segments"],
            model,
            metadata,
            req["audio_path"],
            cfg["device"],
            return_char_alignments=bool(req.get("return_char_alignments")),
            interpolate_method=req.get("interpolate_method") or "nearest",
        )
        reply({"ok": True, "result": clean(result)})
    except Exception as exc:
        reply({"ok": False, "error": str(exc)})
`

const diarizeDriver = `
import json, sys

def reply(payload):
    sys.stdout.write(json.dumps(payload, ensure_ascii=False) + "\n")
    sys.stdout.flush()

cfg = json.loads(sys.argv[1])
import whisperx
pipeline = whisperx.DiarizationPipeline(
    device=cfg["device"],
    use_auth_token=cfg.get("hf_token") or None,
)
reply({"event": "ready"})
for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    req = json.loads(line)
    try:
        segments = pipeline(
            req["audio_path"],
            min_speakers=req.get("min_speakers") or None,
            max_speakers=req.get("max_speakers") or None,
        )
        turns = [
            {"start": float(row["start"]), "end": float(row["end"]), "speaker": str(row["speaker"])}
            for _, row in segments.iterrows()
        ]
        reply({"ok": True, "result": {"turns": turns}})
    except Exception as exc:
        reply({"ok": False, "error": str(exc)})
`
