package cli

const SampleLong = `Stream reads through a RACE density sketch and keep those whose causal
density score is below each threshold tau. Reads are written verbatim; with
several thresholds each output is named <base>-<tau>.<ext>.

Layouts: SE single-end, I interleaved pairs in one file, PE paired files.
With --save the sketch is resumed from and saved to a .bin savefile, and
outputs are appended to so that runs over disjoint inputs build one sample.`

const SampleExamples = `  # keep reads scoring below 5
  racesample sample 5 SE reads.fq sample.fq

  # three thresholds over paired files, flags may follow the arguments
  racesample sample 1,5,20 PE r_1.fq r_2.fq out_1.fq out_2.fq --reps 20 --range 50000

  # accumulate one sample across runs
  racesample sample 5 SE day1.fq.gz sample.fq --save sketch.bin
  racesample sample 5 SE day2.fq.gz sample.fq --save sketch.bin

  # many inputs from a manifest
  racesample sample 5 I out.fa --file-list files.txt`

const PermuteLong = `Reorder a read set by ascending density score. A first pass scores every
read; reads are then re-read by offset in batches of --chunksize and written
in score order, so memory stays bounded. Input must be an uncompressed file.

Score types: R running (causal) score, N running score divided by the read's
position, F every read scored against the finished sketch.`

const PermuteExamples = `  racesample permute SE reads.fq ordered.fq
  racesample permute PE r_1.fq r_2.fq o_1.fq o_2.fq --scoretype F --chunksize 500000`

const InspectExamples = `  racesample inspect sketch.bin
  racesample inspect sketch.bin --json`
