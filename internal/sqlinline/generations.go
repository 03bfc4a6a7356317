package sqlinline

const QEnsureGenerationSchema = `--sql 4862184a-f363-4c93-be4c-f7020f54753e
create table if not exists generations (
    id text primary key,
    user_id text not null default '',
    prompt text not null,
    parameters jsonb not null default '{}'::jsonb,
    clips jsonb not null default '[]'::jsonb,
    status text not null,
    progress jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists generations_status_created_idx on generations (status, created_at desc);
`

const QUpsertGeneration = `--sql b9d2e23b-9a1b-482f-8901-fc627ac672b2
insert into generations (id, user_id, prompt, parameters, clips, status, progress, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::jsonb, $5::jsonb, $6::text, $7::jsonb, $8::timestamptz, $9::timestamptz)
on conflict (id) do update set
    user_id = excluded.user_id,
    prompt = excluded.prompt,
    parameters = excluded.parameters,
    clips = excluded.clips,
    status = excluded.status,
    progress = excluded.progress,
    updated_at = excluded.updated_at;
`

const QSelectGeneration = `--sql c52e8648-075a-4a24-8f9f-2a893ce0fbd3
select id, user_id, prompt, parameters, clips, status, progress, created_at, updated_at
from generations
where id = $1::text
limit 1;
`

const QListGenerations = `--sql 9117f412-1e09-4a93-9fde-4da9110fa8b5
select id, user_id, prompt, parameters, clips, status, progress, created_at, updated_at
from generations
where ($1::text = '' or status = $1::text)
order by created_at desc
limit $2::int offset $3::int;
`

const QCountGenerations = `--sql 4c6cf943-769c-4cfe-bccf-eb19b2ca1e59
select count(*)
from generations
where ($1::text = '' or status = $1::text);
`
